package utils

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	requestValidator *validator.Validate
	requestOnce      sync.Once
)

func requestValidate() *validator.Validate {
	requestOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		requestValidator = v
	})
	return requestValidator
}

// ValidateStruct 校验请求体，返回 json 字段名 -> 失败规则，nil 表示通过
func ValidateStruct(req interface{}) map[string]string {
	err := requestValidate().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), rootName(fe))
		if key == "" {
			key = fe.Field()
		}
		if _, seen := fields[key]; !seen {
			fields[key] = fe.Tag()
		}
	}
	return fields
}

// rootName 去掉结构体名前缀，嵌套字段保留 a.b 形式
func rootName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[:idx+1]
	}
	return ""
}
