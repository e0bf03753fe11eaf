// httpclient/methods.go
package httpclient

import "net/http"

/* Ref: https://www.rfc-editor.org/rfc/rfc7231#section-8.1.3

+---------+------+------------+
| Method  | Safe | Idempotent |
+---------+------+------------+
| CONNECT | no   | no         |
| DELETE  | no   | yes        |
| GET     | yes  | yes        |
| HEAD    | yes  | yes        |
| OPTIONS | yes  | yes        |
| POST    | no   | no         |
| PUT     | no   | yes        |
| TRACE   | yes  | yes        |
+---------+------+------------+
*/

var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

var nonIdempotentMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPatch: true,
}

// IsIdempotentHTTPMethod checks if the given HTTP method is idempotent.
func IsIdempotentHTTPMethod(method string) bool {
	return idempotentMethods[method]
}

// IsNonIdempotentHTTPMethod checks if the given HTTP method is supported but not idempotent.
func IsNonIdempotentHTTPMethod(method string) bool {
	return nonIdempotentMethods[method]
}
