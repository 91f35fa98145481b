package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
)

// Middleware 创建身份解析中间件
//
// 中间件只负责"认证"：有 bearer 令牌则解析为认证主体注入 context，
// 无令牌则以匿名身份放行；"授权"由各路由通过 Admit 按操作判定。
// 令牌存在但无效时立即 401：声明了身份却证明失败不等于匿名。
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}
			if token == "" {
				// 匿名请求
				next.ServeHTTP(w, r)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Printf("[auth] token resolve error: %v", err)
				if errors.Is(err, ErrTokenExpired) {
					http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// bearerToken 从 Authorization 头提取 bearer 令牌
// 无 Authorization 头时返回 ("", true)，格式错误返回 ("", false)
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
