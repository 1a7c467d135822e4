package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxAPDULength CLA INS P1 P2 Lc + 255 字节数据
const MaxAPDULength = 5 + 255

var once sync.Once

// Init 向 gin 的校验引擎注册自定义规则，可重复调用
func Init() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("apdu", validateAPDU)
		}
	})
}

// validateAPDU 偶数长度的十六进制，0x 前缀可选，解码后 4 到 260 字节
func validateAPDU(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s)%2 != 0 || len(s) < 8 || len(s) > 2*MaxAPDULength {
		return false
	}
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// GetErrorMsg 把校验错误翻译为可读的提示
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
			case "apdu":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 4 到 %d 字节的十六进制", field, MaxAPDULength))
			case "hexadecimal":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是十六进制", field))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return "请求参数错误"
}
