package domain

import (
	"errors"
	"fmt"
)

// ErrorClass é a classificação fechada dos erros de assinatura, decidida no adaptador de transporte
type ErrorClass string

const (
	// ErrorClassRecoverable indica perda de conectividade; o transporte continua tentando se recuperar
	ErrorClassRecoverable ErrorClass = "recoverable"
	// ErrorClassFatal indica falha de autorização; a assinatura é encerrada e não é reiniciada
	ErrorClassFatal ErrorClass = "fatal"
)

// SubscriptionError é um erro classificado entregue por uma assinatura de mudanças
type SubscriptionError struct {
	Class   ErrorClass `json:"class"`
	Code    string     `json:"code,omitempty"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
}

func (e *SubscriptionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Class, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

func (e *SubscriptionError) Fatal() bool {
	return e.Class == ErrorClassFatal
}

func NewRecoverableError(code string, err error) *SubscriptionError {
	return &SubscriptionError{Class: ErrorClassRecoverable, Code: code, Message: messageOf(err), Err: err}
}

func NewFatalError(code string, err error) *SubscriptionError {
	return &SubscriptionError{Class: ErrorClassFatal, Code: code, Message: messageOf(err), Err: err}
}

// IsFatal verifica se err carrega uma classificação fatal
func IsFatal(err error) bool {
	var subErr *SubscriptionError
	if errors.As(err, &subErr) {
		return subErr.Fatal()
	}
	return false
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
