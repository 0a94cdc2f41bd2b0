package resource

import (
	"fmt"
	"strings"
	"sync"
)

// Category is the backend kind a source belongs to.
type Category int

const (
	CategoryPackage Category = iota
	CategoryPackagedAsset
	CategoryScene
	CategoryRawFile
	CategoryLocalResource
	CategoryRemoteImage
)

var categoryNames = [...]string{
	CategoryPackage:       "package",
	CategoryPackagedAsset: "packaged_asset",
	CategoryScene:         "scene",
	CategoryRawFile:       "raw_file",
	CategoryLocalResource: "local_resource",
	CategoryRemoteImage:   "remote_image",
}

// Categories lists every known category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryPackage, CategoryPackagedAsset, CategoryScene,
		CategoryRawFile, CategoryLocalResource, CategoryRemoteImage,
	}
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
}

// Partition returns the table partition that indexes the category.
// Packaged assets and scenes share one partition.
func (c Category) Partition() Partition {
	switch c {
	case CategoryPackage:
		return PartitionPackage
	case CategoryPackagedAsset, CategoryScene:
		return PartitionAsset
	case CategoryRawFile:
		return PartitionFile
	case CategoryLocalResource:
		return PartitionLocal
	default:
		return PartitionImage
	}
}

// Partition identifies one independently locked table section. The numeric
// order is the global lock order.
type Partition int

const (
	PartitionPackage Partition = iota
	PartitionAsset
	PartitionFile
	PartitionLocal
	PartitionImage

	PartitionCount = 5
)

var partitionNames = [PartitionCount]string{"package", "asset", "file", "local", "image"}

func (p Partition) String() string {
	if p < 0 || int(p) >= PartitionCount {
		return fmt.Sprintf("partition(%d)", int(p))
	}
	return partitionNames[p]
}

// ID is the value fingerprint of a Key. It is comparable and used as map key.
type ID struct {
	Category  Category
	Container string
	Name      string
}

func (id ID) String() string {
	if id.Container == "" {
		return id.Category.String() + ":" + id.Name
	}
	return id.Category.String() + ":" + id.Container + "/" + id.Name
}

// Key describes a requested resource.
type Key struct {
	// Category selects the backend.
	Category Category
	// Container is the enclosing archive or package, empty when standalone.
	Container string
	// Name is the lookup name, path or URL.
	Name string
	// TargetType tags the expected asset type (e.g. "texture", "scene").
	TargetType string
	// ContentID is the optional content GUID of the resource.
	ContentID string
	// LocalPath is a resolved local path. Runtime only, not part of identity.
	LocalPath string
}

// NewKey returns a key for a resource of the given category.
func NewKey(category Category, container, name string) Key {
	return Key{Category: category, Container: container, Name: name}
}

// PackageKey returns the key of the package with the given name.
func PackageKey(name string) Key {
	return Key{Category: CategoryPackage, Name: name}
}

// ID returns the cache fingerprint of the key.
func (k Key) ID() ID {
	return ID{Category: k.Category, Container: k.Container, Name: k.Name}
}

// Same reports whether both keys address the same cache slot.
func (k Key) Same(other Key) bool {
	return k.ID() == other.ID()
}

func (k Key) String() string {
	s := k.ID().String()
	if k.TargetType != "" {
		s += " <" + k.TargetType + ">"
	}
	if k.ContentID != "" {
		s += " #" + k.ContentID
	}
	return s
}

// ParseKey parses the ID form "category:name" or, for packaged assets and
// scenes, "category:container/name".
func ParseKey(s string) (Key, error) {
	cat, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("malformed resource key %q", s)
	}
	category, err := ParseCategory(cat)
	if err != nil {
		return Key{}, err
	}
	key := Key{Category: category, Name: rest}
	if category == CategoryPackagedAsset || category == CategoryScene {
		container, name, found := strings.Cut(rest, "/")
		if !found {
			return Key{}, fmt.Errorf("resource key %q has no container", s)
		}
		key.Container, key.Name = container, name
	}
	if key.Name == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrEmptyName, s)
	}
	return key, nil
}

var keyPool = sync.Pool{
	New: func() any { return new(Key) },
}

// AcquireKey returns a zeroed *Key from the pool.
func AcquireKey() *Key {
	return keyPool.Get().(*Key)
}

// ReleaseKey zeroes k and hands it back to the pool. The caller must not
// retain k afterwards.
func ReleaseKey(k *Key) {
	if k == nil {
		return
	}
	*k = Key{}
	keyPool.Put(k)
}
