package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"example.com/backstage/services/challan/internal/models"
	"example.com/backstage/services/challan/internal/pdf"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	RegisterCustomValidations(validate)
}

// RegisterCustomValidations registers the validation tags used by request types
func RegisterCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation("challan_date", func(fl validator.FieldLevel) bool {
		_, _, err := models.ParseFilterDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// CreateChallanRequest is the JSON body of a create request. Pointer and raw
// fields tell an absent key apart from an empty value.
type CreateChallanRequest struct {
	Items        json.RawMessage `json:"items"`
	CustomerName *string         `json:"customerName"`
	ChallanNo    *string         `json:"challanNo"`
}

// itemPayload is one element of the items array
type itemPayload struct {
	Quantity    *decimal.Decimal `json:"quantity" validate:"required"`
	Description *string          `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price"`
}

// CreateChallanInput is a validated create request
type CreateChallanInput struct {
	CustomerName string            `validate:"notblank"`
	ChallanNo    string            `validate:"notblank"`
	Items        []models.LineItem `validate:"required"`
}

// Input checks the request in order: required keys, the items array, each
// item, then the text fields.
func (r CreateChallanRequest) Input() (CreateChallanInput, error) {
	var missing []string
	if r.Items == nil {
		missing = append(missing, "items")
	}
	if r.CustomerName == nil {
		missing = append(missing, "customerName")
	}
	if r.ChallanNo == nil {
		missing = append(missing, "challanNo")
	}
	if len(missing) > 0 {
		return CreateChallanInput{}, models.MissingFieldsError(missing)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(r.Items, &raw); err != nil || len(raw) == 0 {
		return CreateChallanInput{}, models.NewValidationError("Items must be a non-empty array", "items")
	}

	items := make([]models.LineItem, 0, len(raw))
	for i, element := range raw {
		item, err := decodeItem(element)
		if err != nil {
			return CreateChallanInput{}, models.NewValidationError(
				fmt.Sprintf("Invalid item at index %d. Each item must have quantity and description", i), "items")
		}
		items = append(items, item)
	}

	input := CreateChallanInput{
		CustomerName: strings.TrimSpace(*r.CustomerName),
		ChallanNo:    strings.TrimSpace(*r.ChallanNo),
		Items:        items,
	}
	if err := input.Validate(); err != nil {
		return CreateChallanInput{}, err
	}
	return input, nil
}

func decodeItem(element json.RawMessage) (models.LineItem, error) {
	var payload itemPayload
	if err := json.Unmarshal(element, &payload); err != nil {
		return models.LineItem{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return models.LineItem{}, err
	}

	item := models.LineItem{
		Quantity:    *payload.Quantity,
		Description: *payload.Description,
		Price:       decimal.Zero,
	}
	if payload.Price != nil {
		item.Price = *payload.Price
	}
	return item, nil
}

// Validate checks an input built without going through CreateChallanRequest
func (in CreateChallanInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return translateValidation(err, map[string]string{
			"CustomerName": "customerName",
			"ChallanNo":    "challanNo",
			"Items":        "items",
		})
	}
	return pdf.ValidateItems(in.Items)
}

// ValidateFilter checks listing query parameters
func ValidateFilter(filter models.ListFilter) error {
	if err := validate.Struct(filter); err != nil {
		return translateValidation(err, map[string]string{
			"Sort":      "sort",
			"Order":     "order",
			"StartDate": "start_date",
			"EndDate":   "end_date",
			"Limit":     "limit",
			"Offset":    "offset",
		})
	}
	return nil
}

// translateValidation turns the first validator failure into a ValidationError
func translateValidation(err error, names map[string]string) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return models.NewValidationError(err.Error())
	}

	fe := errs[0]
	name, ok := names[fe.Field()]
	if !ok {
		name = fe.Field()
	}

	switch fe.Tag() {
	case "required", "notblank":
		if name == "items" {
			return models.NewValidationError("Items must be a non-empty array", name)
		}
		return models.NewValidationError(name+" must not be empty", name)
	case "oneof":
		return models.NewValidationError(
			fmt.Sprintf("Invalid %s %q: must be one of %s", name, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", ")), name)
	case "challan_date":
		return models.NewValidationError(
			fmt.Sprintf("Invalid %s %q: use YYYY-MM-DD or RFC3339", name, fe.Value()), name)
	case "gte":
		return models.NewValidationError(name+" must not be negative", name)
	default:
		return models.NewValidationError(fmt.Sprintf("Invalid %s", name), name)
	}
}
