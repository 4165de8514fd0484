package dto

// ErrorResponse — единый формат ошибки API. CurrentState заполняется
// только для конфликтов, чтобы клиент мог обновить данные и повторить.
type ErrorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code,omitempty"`
	CurrentState string `json:"current_state,omitempty"`
}

// SuccessResponse — обёртка для ответов с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
