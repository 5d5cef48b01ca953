package jsonx

import (
	"bytes"
	"io"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var structValidator = validator.New()

// Decode unmarshals JSON content from r into v.
func Decode(r io.Reader, v interface{}, options ...UnmarshalOption) error {
	var opts UnmarshalOptions
	for _, fn := range options {
		fn(&opts)
	}

	codec := jsoniter.ConfigCompatibleWithStandardLibrary
	if !opts.AllowUnknownFields {
		codec = jsoniter.Config{DisallowUnknownFields: true}.Froze()
	}

	if err := codec.NewDecoder(r).Decode(v); err != nil {
		return err
	}

	if opts.ValidateStruct {
		if err := structValidator.Struct(v); err != nil {
			return err
		}
	}

	return nil
}

// Unmarshal unmarshals JSON content from data into v.
func Unmarshal(data []byte, v interface{}, options ...UnmarshalOption) error {
	return Decode(
		bytes.NewReader(data),
		v,
		options...,
	)
}

// UnmarshalOption is an option that changes the behavior of JSON
// unmarshaling.
type UnmarshalOption func(*UnmarshalOptions)

// UnmarshalOptions is a set of options that control how JSON is unmarshaled.
type UnmarshalOptions struct {
	AllowUnknownFields bool
	ValidateStruct     bool
}

// WithUnknownFields allows unrecognized object fields to be silently
// ignored rather than rejected.
func WithUnknownFields() UnmarshalOption {
	return func(o *UnmarshalOptions) {
		o.AllowUnknownFields = true
	}
}

// WithStructValidation runs the decoded value through
// go-playground/validator's struct tag validation after a successful
// decode, as an alternative to implementing the Validatable interface by
// hand.
func WithStructValidation() UnmarshalOption {
	return func(o *UnmarshalOptions) {
		o.ValidateStruct = true
	}
}
