// Package errors provides examples of structured error handling in graphkv.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeSerialization, "failed to serialise property").
		WithDetail("property", "weight").
		WithDetail("group", "knows")

	fmt.Println(err.Error())

	// Output:
	// serialization: failed to serialise property
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeTruncatedInput, "failed to read length prefix").
		WithDetail("offset", 7)

	if errors.IsType(err, errors.ErrorTypeTruncatedInput) {
		fmt.Println("This is a truncated input error")
	}
	fmt.Println(err)

	// Output:
	// This is a truncated input error
	// truncated_input: failed to read length prefix: unexpected EOF
}

// ExampleUnknownGroup shows the error raised for a group missing from the schema.
func ExampleUnknownGroup() {
	err := errors.UnknownGroup("unknown")

	fmt.Println(errors.IsType(err, errors.ErrorTypeUnknownGroup))
	fmt.Println(err.Details["group"])

	// Output:
	// true
	// unknown
}

// ExampleIsConversionError shows that conversion kinds survive wrapping by outer layers.
func ExampleIsConversionError() {
	conv := errors.Truncated("property block", 4, 2)
	storeErr := errors.Wrap(conv, errors.ErrorTypeStorage, "scan failed")
	cfgErr := errors.New(errors.ErrorTypeConfig, "unknown backend")

	fmt.Println(errors.IsConversionError(conv))
	fmt.Println(errors.IsConversionError(storeErr))
	fmt.Println(errors.IsConversionError(cfgErr))
	fmt.Println(errors.TypeOf(storeErr))

	// Output:
	// true
	// true
	// false
	// storage
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	valErr := errors.New(errors.ErrorTypeValidation, "vertex serialiser is required")
	wrappedErr := errors.Wrap(valErr, errors.ErrorTypeConfig, "failed to build converter")

	fmt.Printf("Is validation error: %v\n", errors.IsType(valErr, errors.ErrorTypeValidation))
	fmt.Printf("Wrapped error is config type: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeConfig))
	fmt.Printf("Wrapped error is validation type: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeValidation))

	// Output:
	// Is validation error: true
	// Wrapped error is config type: true
	// Wrapped error is validation type: false
}
