package ddbsdk

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// ResultMetadata carries the request cost accounting of one call.
type ResultMetadata struct {
	ConsumedCapacity      *types.ConsumedCapacity
	ItemCollectionMetrics *types.ItemCollectionMetrics
}

type Result[T any] struct {
	Item     *T
	Metadata ResultMetadata
}

type Page[T any] struct {
	Items     []*T
	NextToken string
	Metadata  ResultMetadata
}

// Output is the untyped result of a runtime operation, before the generated
// code unmarshalls it.
type Output struct {
	Item     Item
	Metadata ResultMetadata
}

// requireMetadata asserts that a mutating call reported its cost.
func requireMetadata(op, model string, cc *types.ConsumedCapacity, icm *types.ItemCollectionMetrics) (ResultMetadata, error) {
	if cc == nil {
		return ResultMetadata{}, &AssertionFault{Op: op, Model: model, Message: "backend returned no consumed capacity"}
	}
	return ResultMetadata{ConsumedCapacity: cc, ItemCollectionMetrics: icm}, nil
}

// ResultOf decodes the item of an operation output. Outputs without an item,
// such as a touch, give a result with a nil Item.
func ResultOf[T any](out *Output, unmarshall func(Item) (*T, error)) (*Result[T], error) {
	res := &Result[T]{Metadata: out.Metadata}
	if len(out.Item) == 0 {
		return res, nil
	}
	item, err := unmarshall(out.Item)
	if err != nil {
		return nil, err
	}
	res.Item = item
	return res, nil
}

// PageOf decodes every item of a query page.
func PageOf[T any](out *QueryOutput, unmarshall func(Item) (*T, error)) (*Page[T], error) {
	page := &Page[T]{
		Items:     make([]*T, 0, len(out.Items)),
		NextToken: out.NextToken,
		Metadata:  out.Metadata,
	}
	for _, item := range out.Items {
		v, err := unmarshall(item)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

// KeysPage is a page of a query over a KEYS_ONLY index. It holds the node
// ids of the matching records, which resolve with a read by node id.
type KeysPage struct {
	NodeIDs   []string
	NextToken string
	Metadata  ResultMetadata
}

func KeysPageOf(out *QueryOutput, entityType string, hasSortKey bool) (*KeysPage, error) {
	page := &KeysPage{
		NodeIDs:   make([]string, 0, len(out.Items)),
		NextToken: out.NextToken,
		Metadata:  out.Metadata,
	}
	for _, item := range out.Items {
		r := NewAttributeReader(entityType, item)
		id := NodeIDFromItem(r, entityType, hasSortKey)
		if err := r.Err(); err != nil {
			return nil, err
		}
		page.NodeIDs = append(page.NodeIDs, id)
	}
	return page, nil
}
