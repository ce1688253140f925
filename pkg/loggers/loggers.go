package loggers

import (
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/repo"
)

const (
	App          = "app"
	Position     = "position"
	Yield        = "yield"
	Gate         = "gate"
	Orchestrator = "orchestrator"
	PriceFeed    = "pricefeed"
	Chain        = "chain"
	Tracker      = "tracker"
	API          = "api"
)

var w = &LoggerWrapper{
	loggers: map[string]*logrus.Entry{
		App:          newWithModule(App),
		Position:     newWithModule(Position),
		Yield:        newWithModule(Yield),
		Gate:         newWithModule(Gate),
		Orchestrator: newWithModule(Orchestrator),
		PriceFeed:    newWithModule(PriceFeed),
		Chain:        newWithModule(Chain),
		Tracker:      newWithModule(Tracker),
		API:          newWithModule(API),
	},
}

type LoggerWrapper struct {
	loggers map[string]*logrus.Entry
}

func newWithModule(module string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.WithField("module", module)
}

// Initialize rebuilds the registry with per-module levels from config.
func Initialize(rep *repo.Repo) error {
	config := rep.Config

	m := make(map[string]*logrus.Entry)
	m[App] = newWithModule(App)
	m[App].Logger.SetLevel(parseLevel(config.Log.Module.App, config.Log.Level))
	m[Position] = newWithModule(Position)
	m[Position].Logger.SetLevel(parseLevel(config.Log.Module.Position, config.Log.Level))
	m[Yield] = newWithModule(Yield)
	m[Yield].Logger.SetLevel(parseLevel(config.Log.Module.Yield, config.Log.Level))
	m[Gate] = newWithModule(Gate)
	m[Gate].Logger.SetLevel(parseLevel(config.Log.Module.Gate, config.Log.Level))
	m[Orchestrator] = newWithModule(Orchestrator)
	m[Orchestrator].Logger.SetLevel(parseLevel(config.Log.Module.Orchestrator, config.Log.Level))
	m[PriceFeed] = newWithModule(PriceFeed)
	m[PriceFeed].Logger.SetLevel(parseLevel(config.Log.Module.PriceFeed, config.Log.Level))
	m[Chain] = newWithModule(Chain)
	m[Chain].Logger.SetLevel(parseLevel(config.Log.Module.Chain, config.Log.Level))
	m[Tracker] = newWithModule(Tracker)
	m[Tracker].Logger.SetLevel(parseLevel(config.Log.Module.Tracker, config.Log.Level))
	m[API] = newWithModule(API)
	m[API].Logger.SetLevel(parseLevel(config.Log.Module.API, config.Log.Level))

	w = &LoggerWrapper{loggers: m}
	return nil
}

func parseLevel(level string, fallback string) logrus.Level {
	if level == "" {
		level = fallback
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lv
}

func Logger(name string) logrus.FieldLogger {
	return w.loggers[name]
}
