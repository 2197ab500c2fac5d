package logging

import (
    "os"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger tagged with component. LOG_LEVEL selects the level and
// LOG_FILE, when set, adds a size-rotated file next to stdout.
func New(component string) *zap.Logger {
    return build(component, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
}

func build(component, level, file string) *zap.Logger {
    lvl := zapcore.InfoLevel
    switch level {
    case "debug":
        lvl = zapcore.DebugLevel
    case "warn":
        lvl = zapcore.WarnLevel
    case "error":
        lvl = zapcore.ErrorLevel
    }
    encCfg := zap.NewProductionEncoderConfig()
    encCfg.TimeKey = "time"
    encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
    enc := zapcore.NewJSONEncoder(encCfg)

    cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
    if file != "" {
        w := zapcore.AddSync(&lumberjack.Logger{
            Filename:   file,
            MaxSize:    50, // megabytes
            MaxBackups: 5,
            MaxAge:     14, // days
            Compress:   true,
        })
        cores = append(cores, zapcore.NewCore(enc, w, lvl))
    }
    return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(zap.String("component", component))
}
