// Package iocli абстрагирует ввод-вывод терминала для команд клиента.
package iocli

import "io"

//go:generate moq -out io_mock.go . IO

// IO ввод-вывод команд: печать, чтение строк и паролей
type IO interface {
	io.Writer

	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}
