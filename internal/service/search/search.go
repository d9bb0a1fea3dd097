package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/stitchdesk/stitchdesk/internal/models"
)

// EmployeeDoc is the indexed shape of an employee. The password hash is
// never indexed.
type EmployeeDoc struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
	Status      string `json:"status"`
}

func DocFromEmployee(e *models.Employee) EmployeeDoc {
	return EmployeeDoc{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Designation: e.Designation,
		Status:      e.Status,
	}
}

func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []EmployeeDoc, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "email", "designation"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source EmployeeDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]EmployeeDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func Index(ctx context.Context, es *elasticsearch.Client, index string, e *models.Employee) error {
	doc := DocFromEmployee(e)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode employee doc: %w", err)
	}

	res, err := es.Index(
		index,
		bytes.NewReader(data),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(fmt.Sprint(e.ID)),
	)
	if err != nil {
		return fmt.Errorf("index employee: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index employee: %s", res.Status())
	}
	return nil
}

func Delete(ctx context.Context, es *elasticsearch.Client, index string, id uint) error {
	res, err := es.Delete(
		index,
		fmt.Sprint(id),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete employee doc: %w", err)
	}
	defer res.Body.Close()

	// a document that was never indexed is fine to "delete"
	if res.IsError() && !strings.Contains(res.Status(), "404") {
		return fmt.Errorf("delete employee doc: %s", res.Status())
	}
	return nil
}
