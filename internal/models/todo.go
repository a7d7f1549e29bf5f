package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MaxPoints bounds the magnitude of an item's point value
const MaxPoints = math.MaxInt32

// ErrMalformedTodos is returned when a todo node is neither an object nor an array
var ErrMalformedTodos = errors.New("malformed todo collection")

// TodoItem is a single task with a point value and a checked state
type TodoItem struct {
	ID      string `json:"id,omitempty"`
	Label   string `json:"label"`
	Points  int    `json:"points"`
	Checked bool   `json:"checked"`
}

// UnmarshalJSON reads an item leniently: points that are not an in-range
// integer count as zero and fields of the wrong type are left empty.
func (i *TodoItem) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode todo: %w", err)
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("failed to decode todo: unexpected JSON %s", string(data))
	}
	*i = itemFromFields(fields)
	return nil
}

func itemFromFields(fields map[string]any) TodoItem {
	var item TodoItem
	item.ID, _ = fields["id"].(string)
	item.Label, _ = fields["label"].(string)
	item.Checked, _ = fields["checked"].(bool)
	item.Points = PointsOf(fields["points"])
	return item
}

// PointsOf converts a stored points value. Anything that is not an integer
// within MaxPoints is zero.
func PointsOf(v any) int {
	switch p := v.(type) {
	case float64:
		if p != math.Trunc(p) || math.Abs(p) > MaxPoints {
			return 0
		}
		return int(p)
	case int:
		if p > MaxPoints || p < -MaxPoints {
			return 0
		}
		return p
	case int64:
		if p > MaxPoints || p < -MaxPoints {
			return 0
		}
		return int(p)
	default:
		return 0
	}
}

// Todos is a todo collection keyed by item id.
//
// Older records stored the collection as an ordered array; decoding accepts
// both shapes and always produces the keyed form.
type Todos map[string]TodoItem

// UnmarshalJSON decodes either the keyed or the legacy array shape. Any other
// shape decodes to an empty collection; TodosFromNode reports it.
func (t *Todos) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode todos: %w", err)
	}
	if raw == nil {
		*t = nil
		return nil
	}
	todos, _ := TodosFromNode(raw)
	*t = todos
	return nil
}

// TodosFromNode builds a collection from a raw tree node. Entries that are
// not objects are skipped. A scalar node yields an empty collection and
// ErrMalformedTodos.
func TodosFromNode(node any) (Todos, error) {
	switch n := node.(type) {
	case nil:
		return Todos{}, nil
	case map[string]any:
		out := make(Todos, len(n))
		for id, v := range n {
			fields, ok := v.(map[string]any)
			if !ok {
				continue
			}
			item := itemFromFields(fields)
			item.ID = id
			out[id] = item
		}
		return out, nil
	case []any:
		out := make(Todos, len(n))
		for i, v := range n {
			fields, ok := v.(map[string]any)
			if !ok {
				continue
			}
			item := itemFromFields(fields)
			if item.ID == "" {
				item.ID = strconv.Itoa(i)
			}
			out[item.ID] = item
		}
		return out, nil
	default:
		return Todos{}, fmt.Errorf("%w: got %T", ErrMalformedTodos, node)
	}
}

// Sorted returns the items ordered by id. Generated ids are time ordered,
// so this is creation order.
func (t Todos) Sorted() []TodoItem {
	items := make([]TodoItem, 0, len(t))
	for _, item := range t {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items
}
