package httpx

import (
	"github.com/google/uuid"
)

type HttpMethod string

const (
	GET    HttpMethod = "GET"
	POST   HttpMethod = "POST"
	PUT    HttpMethod = "PUT"
	DELETE HttpMethod = "DELETE"
)

func (m HttpMethod) String() string {
	return string(m)
}

type RequestOption struct {
	Method    HttpMethod
	Path      string
	Headers   map[string]string
	Body      interface{}
	Query     map[string]string
	RequestID string
}

type Option func(option *RequestOption)

func WithMethod(method HttpMethod) Option {
	return func(option *RequestOption) {
		option.Method = method
	}
}

func WithMethodGet() Option {
	return WithMethod(GET)
}

func WithMethodPost() Option {
	return WithMethod(POST)
}

func WithMethodPut() Option {
	return WithMethod(PUT)
}

func WithMethodDelete() Option {
	return WithMethod(DELETE)
}

func WithPath(path string) Option {
	return func(option *RequestOption) {
		option.Path = path
	}
}

func WithHeaders(headers map[string]string) Option {
	return func(option *RequestOption) {
		option.Headers = headers
	}
}

func WithHeader(key, value string) Option {
	return func(option *RequestOption) {
		option.Headers[key] = value
	}
}

func WithBody(body interface{}) Option {
	return func(option *RequestOption) {
		option.Body = body
	}
}

func WithQuery(query map[string]string) Option {
	return func(option *RequestOption) {
		option.Query = query
	}
}

func WithQueryParam(key, value string) Option {
	return func(option *RequestOption) {
		option.Query[key] = value
	}
}

func NewRequestOption(options ...Option) *RequestOption {
	option := &RequestOption{
		Headers:   make(map[string]string),
		Query:     make(map[string]string),
		RequestID: uuid.New().String(),
	}
	for _, opt := range options {
		opt(option)
	}
	return option
}
