package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/guestbook/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// 长度上限来自 model，存储层 CHECK 约束使用同一组常量
	v.RegisterAlias("name_len", fmt.Sprintf("max=%d", model.MaxNameLength))
	v.RegisterAlias("message_len", fmt.Sprintf("max=%d", model.MaxMessageLength))
	if err := v.RegisterValidation("clean_text", cleanText); err != nil {
		panic(err)
	}
	return v
}

// cleanText 必须是合法 UTF-8 且不含 NUL，否则数据库会拒绝或截断
func cleanText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// submission 去除首尾空白后的表单
type submission struct {
	Name    string `json:"name" validate:"required,clean_text,name_len"`
	Message string `json:"message" validate:"required,clean_text,message_len"`
}

func normalize(rawName, rawMessage string) submission {
	return submission{Name: strings.TrimSpace(rawName), Message: strings.TrimSpace(rawMessage)}
}

// check 返回第一个不满足的字段（按 name, message 顺序）
func (s submission) check() *ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Reason: "invalid submission"}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "clean_text":
		return fmt.Sprintf("%s contains invalid characters", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be %s characters or fewer", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
