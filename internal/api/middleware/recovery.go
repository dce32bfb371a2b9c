package middleware

import (
	"net/http"
	"runtime/debug"

	"condorledger/pkg/utils"
)

// Recovery перехватывает panic в handler, логирует stack trace
// и отвечает 500 без деталей паники.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				utils.Error("panic recovered",
					utils.Panic(err),
					utils.Method(r.Method),
					utils.Path(r.URL.Path),
					utils.String("stack", string(debug.Stack())),
				)

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
