package download

import "fmt"

// TransportError 传输层失败（连接被拒、DNS 失败、连接重置等），
// 只通过回调和返回值交给调用方。
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
