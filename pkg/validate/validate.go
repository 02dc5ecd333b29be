package validate

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout 考勤日期格式
const DateLayout = "2006-01-02"

// Sessions 合法的考勤时段
var Sessions = []string{"forenoon", "afternoon"}

// IsSession 判断时段是否合法
func IsSession(s string) bool {
	for _, v := range Sessions {
		if s == v {
			return true
		}
	}
	return false
}

// IsDate 判断是否为合法的 YYYY-MM-DD 日期
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Register 在 gin 的 validator 引擎上注册自定义标签：session、isodate
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding 引擎不是 validator.Validate")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定 validator 上注册自定义标签
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("session", func(fl validator.FieldLevel) bool {
		return IsSession(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
}

// FieldErrors 将 validator 错误转换为 字段 → 规则 映射，供响应 details 使用
func FieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
