package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/pkg/model"
)

// ErrEmptyQuery is returned when a pharmacy lookup has no query text
var ErrEmptyQuery = fmt.Errorf("%w: query must not be empty", ErrInvalidInput)

// PharmacySchema is the structured response expected from a pharmacy lookup
var PharmacySchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"medicines": {
			Type: ai.TypeArray,
			Items: &ai.Schema{
				Type: ai.TypeObject,
				Properties: map[string]*ai.Schema{
					"name":             {Type: ai.TypeString},
					"genericName":      {Type: ai.TypeString},
					"purpose":          {Type: ai.TypeString},
					"dosage":           {Type: ai.TypeString},
					"approximatePrice": {Type: ai.TypeString, Description: "price in Indian Rupees"},
				},
				Required: []string{"name"},
			},
		},
		"precautions": {Type: ai.TypeArray, Items: &ai.Schema{Type: ai.TypeString}},
		"advice":      {Type: ai.TypeString},
		"seeDoctor":   {Type: ai.TypeBoolean},
	},
	Required: []string{"medicines"},
}

const pharmacyInstruction = `You are a knowledgeable pharmacist in India helping a patient.
The patient describes symptoms or names a medicine. Suggest commonly available over-the-counter options with their generic names, purpose, typical adult dosage and approximate price in Indian Rupees.
Never suggest prescription-only medicines. List important precautions and set "seeDoctor" to true whenever the symptoms need a doctor's assessment.
Respond with JSON only, no markdown.`

// Pharmacy builds the lookup request for a free-text query
func (b *RequestBuilder) Pharmacy(query string) *ai.Request {
	return &ai.Request{
		Capability:        ai.CapabilityPharmacy,
		Model:             b.models.Pharmacy,
		SystemInstruction: joinInstruction(pharmacyInstruction, b.clock.Context()),
		Contents:          []ai.Content{ai.UserContent(ai.TextPart(query))},
		Schema:            PharmacySchema,
	}
}

// NormalizePharmacy turns a validated response into a PharmacyResult.
// Medicines without a name are dropped.
func NormalizePharmacy(obj ai.Object) (*model.PharmacyResult, error) {
	items, ok := obj.Objects("medicines")
	if !ok {
		return nil, &ai.ParseError{Field: "medicines", Reason: "missing required field"}
	}

	medicines := make([]model.Medicine, 0, len(items))
	for _, item := range items {
		name, ok := item.Text("name")
		if !ok {
			continue
		}
		generic, _ := item.Text("genericName")
		purpose, _ := item.Text("purpose")
		dosage, _ := item.Text("dosage")
		price, _ := item.Text("approximatePrice")
		medicines = append(medicines, model.Medicine{
			Name:             name,
			GenericName:      generic,
			Purpose:          purpose,
			Dosage:           dosage,
			ApproximatePrice: price,
		})
	}

	precautions, _ := obj.Strings("precautions")
	if precautions == nil {
		precautions = []string{}
	}
	seeDoctor, _ := obj.Bool("seeDoctor")

	return &model.PharmacyResult{
		Medicines:   medicines,
		Precautions: precautions,
		Advice:      textOrDefault("pharmacy", obj, "advice"),
		SeeDoctor:   seeDoctor,
	}, nil
}

// Pharmacy suggests medicines for a symptom or medicine query
func (a *Assistant) Pharmacy(ctx context.Context, query string) (*model.PharmacyResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	req := a.builder.Pharmacy(query)

	resp, err := a.invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	obj, err := a.parse(req, resp)
	if err != nil {
		return nil, err
	}

	result, err := NormalizePharmacy(obj)
	if err != nil {
		a.logParseFailure(req, resp, err)
		return nil, err
	}
	return result, nil
}
