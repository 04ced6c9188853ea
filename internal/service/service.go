package service

import (
	"context"
	"errors"
	"fmt"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("go-fulfillment-ws/service")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}

var (
	errProductNotFound  = apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found.")
	errLocationNotFound = apperr.NotFound("LOCATION_NOT_FOUND", "Location not found. Create it before placing products there.")
	errPlanNotFound     = apperr.NotFound("DELIVERY_PLAN_NOT_FOUND", "Delivery plan not found.")
	errOrderNotFound    = apperr.NotFound("ORDER_NOT_FOUND", "Order not found.")
	errSubjectNotFound  = apperr.NotFound("SUBJECT_NOT_FOUND", "No product or order exists with this id.")
)

// notFound returns a fresh copy so correlation ids are never shared.
func notFound(tmpl *apperr.Error) *apperr.Error {
	return apperr.NotFound(tmpl.Code, tmpl.Message)
}

// translate converts repository failures into the apperr taxonomy.
// Typed errors pass through untouched.
func translate(err error, missing *apperr.Error) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, repository.ErrNotFound):
		if missing != nil {
			return notFound(missing)
		}
		return apperr.NotFound("NOT_FOUND", "The requested record was not found.")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("The record was changed by another request. Please retry.", err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.KindValidation, "DUPLICATE", "A record with the same identifier already exists.", err)
	}
	return apperr.Storage(err)
}

// fail stamps the correlation id and logs at a level matching the kind.
func fail(log *zap.Logger, op, correlationID string, err error, fields ...zap.Field) error {
	err = apperr.Stamp(translate(err, nil), correlationID)
	fields = append(fields,
		zap.String("op", op),
		zap.String("correlation_id", correlationID),
		zap.String("kind", string(apperr.KindOf(err))),
		zap.Error(err),
	)
	if apperr.KindOf(err) == apperr.KindStorage {
		log.Error("operation failed", fields...)
	} else {
		log.Info("operation rejected", fields...)
	}
	return err
}

// validate runs struct tags and reports the first failure as a validation error.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return apperr.Validation(fmt.Sprintf("Validation failed: field '%s' failed on tag '%s'", first.FailedField, first.Tag))
	}
	return nil
}
