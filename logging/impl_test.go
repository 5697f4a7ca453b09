package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("built map", "width", 4, "height", 3)
	logger.Warnf("skipping %q", "board1.png")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("built map").Len(), test.ShouldEqual, 1)
	entry := logs.FilterLevelExact(zapcore.WarnLevel).All()
	test.That(t, entry, test.ShouldHaveLength, 1)
	test.That(t, entry[0].Message, test.ShouldEqual, `skipping "board1.png"`)
	test.That(t, entry[0].ContextMap()["width"], test.ShouldBeNil)

	fields := logs.FilterMessage("built map").All()[0].ContextMap()
	test.That(t, fields["width"], test.ShouldEqual, int64(4))
}

func TestSubloggerNames(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("calibration")
	subsub := sub.Sublogger("opencv")

	sub.Info("one")
	subsub.Info("two")

	all := logs.All()
	test.That(t, all, test.ShouldHaveLength, 2)
	test.That(t, all[0].LoggerName, test.ShouldEqual, "calibration")
	test.That(t, all[1].LoggerName, test.ShouldEqual, "calibration.opencv")
}

func TestSetLevel(t *testing.T) {
	logger := NewBlankLogger("blank")
	test.That(t, logger.GetLevel(), test.ShouldEqual, zapcore.DebugLevel)
	logger.SetLevel(zapcore.WarnLevel)
	test.That(t, logger.GetLevel(), test.ShouldEqual, zapcore.WarnLevel)

	// subloggers share the level of their parent
	sub := logger.Sublogger("sub")
	test.That(t, sub.GetLevel(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestGlobal(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger := NewTestLogger(t)
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}
