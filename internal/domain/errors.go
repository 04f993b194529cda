package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	// ErrDataFormat: registro con campos ausentes, fecha no parseable o saldo no numérico.
	ErrDataFormat = errors.New("formato de datos inválido")
	// ErrSchemaInference: no se puede inferir el tipo de una columna (columna sin valores).
	ErrSchemaInference = errors.New("no se puede inferir el esquema")
	// ErrLoad: el destino rechazó la carga.
	ErrLoad = errors.New("el destino rechazó la carga")
)
