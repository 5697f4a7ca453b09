package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// coreFactory builds one output of a logger gated by the logger's level.
type coreFactory func(level zapcore.LevelEnabler) zapcore.Core

type impl struct {
	*zap.SugaredLogger

	name  string
	level zap.AtomicLevel
	cores []zapcore.Core
}

func newImpl(name string, level zap.AtomicLevel, factories ...coreFactory) *impl {
	cores := make([]zapcore.Core, 0, len(factories))
	for _, factory := range factories {
		cores = append(cores, factory(level))
	}
	return build(name, level, cores)
}

func build(name string, level zap.AtomicLevel, cores []zapcore.Core) *impl {
	sugared := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	if name != "" {
		sugared = sugared.Named(name)
	}
	return &impl{SugaredLogger: sugared, name: name, level: level, cores: cores}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	// Subloggers share the parent's outputs and level.
	return build(newName, imp.level, imp.cores)
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

func (imp *impl) GetLevel() zapcore.Level {
	return imp.level.Level()
}
