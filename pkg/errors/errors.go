package errors

import "errors"

// ErrMissingParent 子记录缺少父记录外键（如分组行没有所属的匹配结果）
var ErrMissingParent = errors.New("缺少父记录，拒绝写入")

// ErrImmutableRecord 不可变记录禁止更新
var ErrImmutableRecord = errors.New("记录不可修改")
