package resource

import (
	"sort"

	"go.uber.org/zap"
)

// EntryInfo describes one indexed entry.
type EntryInfo struct {
	Key       string  `json:"key"`
	Category  string  `json:"category"`
	Partition string  `json:"partition"`
	State     string  `json:"state"`
	Progress  float64 `json:"progress"`
	RefCount  int     `json:"ref_count"`
	Recycled  bool    `json:"recycled"`
}

// PartitionStats holds the counters of one partition.
type PartitionStats struct {
	Entries    int `json:"entries"`
	Referenced int `json:"referenced"`
	TotalRefs  int `json:"total_refs"`
	Recycled   int `json:"recycled"`
	Waiting    int `json:"waiting"`
	Loading    int `json:"loading"`
	Ready      int `json:"ready"`
}

// Stats holds table wide counters.
type Stats struct {
	PartitionStats
	Partitions map[string]PartitionStats `json:"partitions"`
}

// LeakReport is the outcome of DetectLeaks. It is advisory only.
type LeakReport struct {
	Entries          int     `json:"entries"`
	Recycled         int     `json:"recycled"`
	RecycledRatio    float64 `json:"recycled_ratio"`
	MaxEntries       int     `json:"max_entries"`
	MaxRecycledRatio float64 `json:"max_recycled_ratio"`
	TooManyEntries   bool    `json:"too_many_entries"`
	TooManyRecycled  bool    `json:"too_many_recycled"`
}

// Suspicious reports whether any threshold was crossed.
func (r LeakReport) Suspicious() bool {
	return r.TooManyEntries || r.TooManyRecycled
}

// Snapshot lists every indexed entry, sorted by partition and key. Each
// partition is read under its own lock.
func (t *Table) Snapshot() []EntryInfo {
	var out []EntryInfo
	for i, p := range t.parts {
		part := Partition(i).String()
		start := len(out)

		p.mu.Lock()
		for id, ref := range p.entries {
			info := EntryInfo{
				Key:       id.String(),
				Category:  id.Category.String(),
				Partition: part,
				RefCount:  p.refs[id],
			}
			if src, live := ref.Source(); live {
				info.State = src.State().String()
				info.Progress = src.Progress()
			} else {
				info.Recycled = true
			}
			out = append(out, info)
		}
		p.mu.Unlock()

		section := out[start:]
		sort.Slice(section, func(a, b int) bool { return section[a].Key < section[b].Key })
	}
	return out
}

// Statistics returns consistent counters across all partitions.
func (t *Table) Statistics() Stats {
	t.lockAll()
	defer t.unlockAll()

	stats := Stats{Partitions: make(map[string]PartitionStats, PartitionCount)}
	for i, p := range t.parts {
		var ps PartitionStats
		for id, ref := range p.entries {
			ps.Entries++
			if n := p.refs[id]; n > 0 {
				ps.Referenced++
				ps.TotalRefs += n
			}
			src, live := ref.Source()
			if !live {
				ps.Recycled++
				continue
			}
			switch src.State() {
			case StateWaiting:
				ps.Waiting++
			case StateLoading:
				ps.Loading++
			case StateReady:
				ps.Ready++
			}
		}
		stats.Partitions[Partition(i).String()] = ps

		stats.Entries += ps.Entries
		stats.Referenced += ps.Referenced
		stats.TotalRefs += ps.TotalRefs
		stats.Recycled += ps.Recycled
		stats.Waiting += ps.Waiting
		stats.Loading += ps.Loading
		stats.Ready += ps.Ready
	}
	return stats
}

// lockAll locks every partition in Partition order.
func (t *Table) lockAll() {
	for _, p := range t.parts {
		p.mu.Lock()
	}
}

func (t *Table) unlockAll() {
	for i := len(t.parts) - 1; i >= 0; i-- {
		t.parts[i].mu.Unlock()
	}
}

// CleanupRecycledEntries evicts entries whose source is gone or recycled.
// Calls closer together than the configured cleanup interval return 0
// without scanning.
func (t *Table) CleanupRecycledEntries() int {
	if !t.cleanup.Allow() {
		return 0
	}
	return t.ForceCleanup()
}

// ForceCleanup is CleanupRecycledEntries without rate limiting.
func (t *Table) ForceCleanup() int {
	removed := 0
	for _, p := range t.parts {
		p.mu.Lock()
		for id, ref := range p.entries {
			if !ref.Valid() {
				delete(p.entries, id)
				delete(p.refs, id)
				removed++
			}
		}
		for id := range p.refs {
			if _, ok := p.entries[id]; !ok {
				delete(p.refs, id)
			}
		}
		p.mu.Unlock()
	}
	if removed > 0 {
		t.logger.Info("Evicted recycled resource entries", zap.Int("count", removed))
	}
	return removed
}

// DetectLeaks compares the entry count and the recycled entry ratio with the
// configured thresholds and logs a warning when one is crossed.
func (t *Table) DetectLeaks() LeakReport {
	stats := t.Statistics()

	report := LeakReport{
		Entries:          stats.Entries,
		Recycled:         stats.Recycled,
		MaxEntries:       t.maxItems,
		MaxRecycledRatio: t.maxRatio,
	}
	if stats.Entries > 0 {
		report.RecycledRatio = float64(stats.Recycled) / float64(stats.Entries)
	}
	report.TooManyEntries = t.maxItems > 0 && stats.Entries > t.maxItems
	report.TooManyRecycled = t.maxRatio > 0 && report.RecycledRatio > t.maxRatio

	if report.Suspicious() {
		t.logger.Warn("Possible resource leak",
			zap.Int("entries", report.Entries),
			zap.Int("recycled", report.Recycled),
			zap.Float64("recycled_ratio", report.RecycledRatio),
			zap.Int("max_entries", t.maxItems),
			zap.Float64("max_recycled_ratio", t.maxRatio))
	}
	return report
}
