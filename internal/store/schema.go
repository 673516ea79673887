package store

// Name identifies one record collection of the store.
type Name string

// Record collections.
const (
	Requests           Name = "requests"
	Collections        Name = "collections"
	CollectionRequests Name = "collection_requests"
	Environments       Name = "environments"
)

// Index identifies a secondary index declared on a collection.
type Index string

// Secondary indices.
const (
	ByTimestamp    Index = "timestamp"
	ByCollectionID Index = "collectionId"
)

// schema lists the indices declared for every collection, in column order.
var schema = map[Name][]Index{
	Requests:           {ByTimestamp},
	Collections:        {ByTimestamp},
	CollectionRequests: {ByTimestamp, ByCollectionID},
	Environments:       {ByTimestamp},
}

var indexColumns = map[Index]string{
	ByTimestamp:    "timestamp",
	ByCollectionID: "collection_id",
}

// Indexes returns the indices declared on name, or nil for an unknown name.
func Indexes(name Name) []Index {
	idx := schema[name]
	out := make([]Index, len(idx))
	copy(out, idx)

	return out
}

func hasIndex(name Name, idx Index) bool {
	for _, i := range schema[name] {
		if i == idx {
			return true
		}
	}

	return false
}
