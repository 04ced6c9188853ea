package validator

import (
	"go-fulfillment-ws/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	validate.RegisterValidation("product_status", func(fl validator.FieldLevel) bool {
		return model.ProductStatus(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("product_condition", func(fl validator.FieldLevel) bool {
		return model.ProductCondition(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return model.ProductCategory(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("picking_priority", func(fl validator.FieldLevel) bool {
		return model.PickingPriority(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return model.OrderStatus(fl.Field().String()).Valid()
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "request", Tag: "invalid"}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}
