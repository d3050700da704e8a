package strategy

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// Deps carries everything a strategy implementation needs at runtime.
type Deps struct {
	Data contracts.PriceProvider
	Log  *logger.Logger
}

// Factory builds one strategy instance from its parsed definition.
type Factory func(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error)

// ⭐ SSOT: 룰 종류와 팩토리 매핑은 여기서만
var factories = map[string]Factory{
	"ma_cross":     newMACross,
	"rsi_reversal": newRSIReversal,
	"uptrend":      newUptrend,
	"breakout":     newBreakout,
	"composite":    newComposite,
}

// New instantiates the strategy for a rule kind. An unknown kind means
// the definition has no analyze implementation to bind to.
func New(kind string, meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule kind %q, known kinds: %s", kind, strings.Join(Kinds(), ", "))
	}
	return factory(meta, params, deps)
}

// Kinds lists the known rule kinds, sorted.
func Kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
