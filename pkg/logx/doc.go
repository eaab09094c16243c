// Package logx is a thin structured-logging layer over zerolog.
//
// It keeps console output readable (short timestamp + short caller) and
// file output JSON-structured, and lets components derive scoped loggers
// with With() without knowing about sink configuration.
package logx
