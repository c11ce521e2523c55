// Входные/выходные модели REST API MyData (/api/v1).
package models

// Envelope — общая обёртка ответов бэкенда: {success, message, data}.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}
