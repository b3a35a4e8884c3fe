package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

var validate = validator.New()

// Parse decodes a price list document. JSON is tried first, then YAML.
// YAML input is normalized through a JSON re-encode so both formats share
// one set of decoding rules.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list is empty")
	}

	doc, jsonErr := parseJSON(data)
	if jsonErr != nil {
		var yamlErr error
		doc, yamlErr = parseYAML(data)
		if yamlErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, yamlErr, "price list is neither valid JSON nor valid YAML")
		}
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseYAML(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing yaml document: %w", err)
	}
	return parseJSON(encoded)
}

func validateDocument(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price list failed validation")
	}

	categories := make(map[int64]struct{}, len(doc.Categories))
	for _, category := range doc.Categories {
		if _, dup := categories[category.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate category id %d", category.ID))
		}
		categories[category.ID] = struct{}{}
	}

	goods := make(map[int64]struct{}, len(doc.Goods))
	for _, good := range doc.Goods {
		if _, dup := goods[good.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate good id %d", good.ID))
		}
		goods[good.ID] = struct{}{}

		if _, ok := categories[good.Category]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("good %d references undeclared category %d", good.ID, good.Category))
		}
		if good.Price.IsNegative() || good.PriceRRC.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("good %d has a negative price", good.ID))
		}
	}
	return nil
}
