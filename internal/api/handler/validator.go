package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验标签，须在路由处理请求前调用
//
//	weight: 领导力 / 视力权重，只允许 8、3、1
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("gin 校验引擎不是 validator/v10")
			return
		}
		err = v.RegisterValidation("weight", validWeight)
	})
	return err
}

func validWeight(fl validator.FieldLevel) bool {
	switch fl.Field().Int() {
	case 8, 3, 1:
		return true
	default:
		return false
	}
}
