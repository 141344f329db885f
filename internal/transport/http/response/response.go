package response

import (
	"errors"

	"task-manager-api/internal/domain"
)

type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// New never leaves data as null.
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error uses the default message for code when customMsg is empty.
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// FromError maps a service error onto the envelope. Internal errors keep
// their cause out of the message.
func FromError(err error) Resp {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		return Error(CodeServerError, "internal error")
	}
	return Error(CodeOf(de.Kind), de.Msg)
}
