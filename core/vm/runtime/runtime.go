package runtime

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
	"github.com/evmcore/evmcore/params"
)

// Config is the set of knobs for a one-shot execution. Zero values are
// filled in by setDefaults.
type Config struct {
	ForkConfig  *params.ForkConfig
	Origin      types.Address
	Coinbase    types.Address
	BlockNumber uint64
	Time        uint64
	GasLimit    uint64
	GasPrice    *uint256.Int
	Value       *uint256.Int
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
	PrevRandao  types.Hash
	AccessList  types.AccessList
	BlobHashes  []types.Hash

	State     *HostState
	EVMConfig vm.Config
}

func setDefaults(cfg *Config) {
	if cfg.ForkConfig == nil {
		cfg.ForkConfig = params.CancunConfig()
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 10_000_000
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = new(uint256.Int)
	}
	if cfg.Value == nil {
		cfg.Value = new(uint256.Int)
	}
	if cfg.BaseFee == nil {
		cfg.BaseFee = new(uint256.Int)
	}
	if cfg.BlobBaseFee == nil {
		cfg.BlobBaseFee = new(uint256.Int)
	}
	if cfg.State == nil {
		cfg.State = NewHostState()
	}
}

// newExecutor wires a Config into a vm.Executor, pre-warming the
// precompile range as the handler owns the precompile set.
func newExecutor(cfg *Config) *vm.Executor {
	block := vm.BlockContext{
		Coinbase:    cfg.Coinbase,
		Number:      cfg.BlockNumber,
		Time:        cfg.Time,
		GasLimit:    cfg.GasLimit,
		PrevRandao:  cfg.PrevRandao,
		BaseFee:     cfg.BaseFee,
		BlobBaseFee: cfg.BlobBaseFee,
	}
	tx := vm.TxContext{
		Origin:     cfg.Origin,
		GasPrice:   cfg.GasPrice,
		AccessList: cfg.AccessList,
		BlobHashes: cfg.BlobHashes,
	}
	if cfg.ForkConfig.HasAccessLists {
		for _, addr := range cfg.State.PrecompileAddresses() {
			cfg.State.MarkWarmAddress(addr)
		}
	}
	return vm.NewExecutor(cfg.ForkConfig, block, tx, cfg.State, cfg.EVMConfig)
}

// Execute deploys the given code at a scratch address and calls it with
// the input. Convenient for "run this bytecode" tests and tools. An account
// already set up at the scratch address keeps its balance, nonce and
// storage.
func Execute(code, input []byte, cfg *Config) (*vm.Outcome, *HostState) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	address := types.BytesToAddress([]byte("contract"))
	if !cfg.State.Exist(address) {
		cfg.State.CreateAccount(address)
	}
	cfg.State.SetCode(address, code)

	ev := newExecutor(cfg)
	outcome := ev.Call(cfg.Origin, address, input, cfg.GasLimit, cfg.Value)
	return outcome, cfg.State
}

// Create runs the given init code as a contract creation.
func Create(input []byte, cfg *Config) (*vm.Outcome, *HostState) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	ev := newExecutor(cfg)
	outcome := ev.Create(cfg.Origin, input, cfg.GasLimit, cfg.Value)
	return outcome, cfg.State
}

// Call executes a message call against an address already set up in
// cfg.State.
func Call(address types.Address, input []byte, cfg *Config) *vm.Outcome {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	ev := newExecutor(cfg)
	return ev.Call(cfg.Origin, address, input, cfg.GasLimit, cfg.Value)
}
