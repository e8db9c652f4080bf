// Package validate настраивает go-playground/validator для входящих DTO:
// в ошибках поля называются так же, как в JSON.
package validate

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Default возвращает общий экземпляр валидатора. Валидатор кеширует
// разбор структур и безопасен для конкурентного использования.
func Default() *validator.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New создаёт валидатор, берущий имена полей из json-тегов.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
