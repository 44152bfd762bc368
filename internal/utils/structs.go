package utils

import (
	"fmt"
	"reflect"
)

// FieldTag is the struct tag naming a field's persisted document key.
var FieldTag = "doc"

// StructTagValues lists the FieldTag names of the exported fields of input,
// in declaration order.
func StructTagValues(input any) []string {
	names := make([]string, 0)
	walkTagged(input, func(name string, _ reflect.Value) {
		names = append(names, name)
	})
	return names
}

// StructToMap keys every tagged exported field of input by its FieldTag name.
func StructToMap(input any) map[string]any {
	result := make(map[string]any)
	walkTagged(input, func(name string, value reflect.Value) {
		result[name] = value.Interface()
	})
	return result
}

func walkTagged(input any, fn func(name string, value reflect.Value)) {
	itemValue := reflect.ValueOf(input)
	if itemValue.Kind() == reflect.Ptr {
		itemValue = itemValue.Elem()
	}

	if itemValue.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	itemType := itemValue.Type()
	for i := 0; i < itemValue.NumField(); i++ {
		field := itemType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		tagValue := field.Tag.Get(FieldTag)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		fn(tagValue, itemValue.Field(i))
	}
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
