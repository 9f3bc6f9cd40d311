package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// codeErr carries a business error code through proxyutil, which renders it
// as {code, message} in the response envelope.
type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string { return e.msg }

func (e codeErr) Code() uint32 { return e.code }

// Success writes the standard {code:0, data} envelope.
func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes a failure envelope with the given business code. The HTTP
// status stays 200; clients dispatch on the envelope code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, codeErr{code: uint32(code), msg: message})
}
