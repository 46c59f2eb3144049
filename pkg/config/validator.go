package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// lookup resolves a dot-separated field path (e.g. "Executor.Workers") on a
// struct or pointer to struct
func lookup(config interface{}, fieldPath string) (reflect.Value, error) {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("config must be a struct")
	}

	current := val
	for _, part := range strings.Split(fieldPath, ".") {
		if current.Kind() == reflect.Ptr {
			if current.IsNil() {
				return reflect.Value{}, fmt.Errorf("field %s not found", fieldPath)
			}
			current = current.Elem()
		}
		if current.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field %s not found", fieldPath)
		}
		current = current.FieldByName(part)
		if !current.IsValid() {
			return reflect.Value{}, fmt.Errorf("field %s not found", fieldPath)
		}
	}
	return current, nil
}

// RequiredFields validates that required fields are not empty
func RequiredFields(fields ...string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		missing := make([]string, 0)
		for _, fieldName := range fields {
			fieldVal, err := lookup(config, fieldName)
			if err != nil {
				return err
			}
			if fieldVal.IsZero() {
				missing = append(missing, fieldName)
			}
		}

		if len(missing) > 0 {
			return fmt.Errorf("required fields are missing: %s", strings.Join(missing, ", "))
		}
		return nil
	})
}

// RangeValidator validates that a numeric field is within [min, max].
// Supports nested fields using dot notation (e.g., "Executor.Workers").
func RangeValidator(fieldName string, min, max float64) Validator {
	return ValidatorFunc(func(config interface{}) error {
		fieldVal, err := lookup(config, fieldName)
		if err != nil {
			return err
		}

		var numVal float64
		switch fieldVal.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			numVal = float64(fieldVal.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			numVal = float64(fieldVal.Uint())
		case reflect.Float32, reflect.Float64:
			numVal = fieldVal.Float()
		default:
			return fmt.Errorf("field %s is not numeric", fieldName)
		}

		if numVal < min || numVal > max {
			return fmt.Errorf("field %s value %g is out of range [%g, %g]", fieldName, numVal, min, max)
		}
		return nil
	})
}

// DurationRangeValidator validates that a time.Duration field is within [min, max]
func DurationRangeValidator(fieldName string, min, max time.Duration) Validator {
	return ValidatorFunc(func(config interface{}) error {
		fieldVal, err := lookup(config, fieldName)
		if err != nil {
			return err
		}
		d, ok := fieldVal.Interface().(time.Duration)
		if !ok {
			return fmt.Errorf("field %s is not a duration", fieldName)
		}
		if d < min || d > max {
			return fmt.Errorf("field %s value %s is out of range [%s, %s]", fieldName, d, min, max)
		}
		return nil
	})
}

// StringLengthValidator validates that a string field length is within [minLen, maxLen]
func StringLengthValidator(fieldName string, minLen, maxLen int) Validator {
	return ValidatorFunc(func(config interface{}) error {
		fieldVal, err := lookup(config, fieldName)
		if err != nil {
			return err
		}
		if fieldVal.Kind() != reflect.String {
			return fmt.Errorf("field %s is not a string", fieldName)
		}

		length := len(fieldVal.String())
		if length < minLen || length > maxLen {
			return fmt.Errorf("field %s length %d is out of range [%d, %d]", fieldName, length, minLen, maxLen)
		}
		return nil
	})
}

// OneOfValidator validates that a field value is one of the allowed values
func OneOfValidator(fieldName string, allowedValues ...interface{}) Validator {
	return ValidatorFunc(func(config interface{}) error {
		fieldVal, err := lookup(config, fieldName)
		if err != nil {
			return err
		}

		fieldInterface := fieldVal.Interface()
		for _, allowed := range allowedValues {
			if reflect.DeepEqual(fieldInterface, allowed) {
				return nil
			}
		}
		return fmt.Errorf("field %s value %v is not one of allowed values: %v", fieldName, fieldInterface, allowedValues)
	})
}
