package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIs(t *testing.T) {
	base := NotFound("班次", "abc")
	wrapped := fmt.Errorf("排序失败: %w", base)

	if !Is(base, CodeNotFound) {
		t.Error("应识别 NOT_FOUND")
	}
	if !Is(wrapped, CodeNotFound) {
		t.Error("包装后仍应识别 NOT_FOUND")
	}
	if Is(wrapped, CodeTimeout) {
		t.Error("不应识别为 TIMEOUT")
	}
	if Is(stderrors.New("plain"), CodeNotFound) {
		t.Error("普通错误不应匹配")
	}
}

func TestGetCode(t *testing.T) {
	if code := GetCode(Database(stderrors.New("conn refused"), "查询失败")); code != CodeDatabaseError {
		t.Errorf("GetCode() = %v, expected %v", code, CodeDatabaseError)
	}
	if code := GetCode(stderrors.New("plain")); code != CodeUnknown {
		t.Errorf("GetCode() = %v, expected %v", code, CodeUnknown)
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := stderrors.New("driver: bad connection")
	err := Wrap(cause, CodeDatabaseError, "查询排班失败")

	if !stderrors.Is(err, cause) {
		t.Error("Unwrap 应返回底层错误")
	}
	if err.Error() != "[DATABASE_ERROR] 查询排班失败: driver: bad connection" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("初始不应有错误")
	}
	ve.Add("month", "必须在1-12之间")
	if !ve.HasErrors() {
		t.Error("应有错误")
	}

	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail {
		t.Errorf("Code = %v, expected %v", appErr.Code, CodeValidationFail)
	}
	if appErr.Fields["month"] != "必须在1-12之间" {
		t.Errorf("Fields = %v", appErr.Fields)
	}

	ve.Add("year", "不能为负")
	expected := "month: 必须在1-12之间; year: 不能为负"
	if ve.Error() != expected {
		t.Errorf("Error() = %q, expected %q", ve.Error(), expected)
	}
	if !Is(ve.ToAppError(), CodeValidationFail) {
		t.Error("ToAppError() 应带 VALIDATION_FAILED 错误码")
	}
	if ve.ToAppError().Unwrap() != ve {
		t.Error("ToAppError() 应以原集合为 Cause")
	}
}
