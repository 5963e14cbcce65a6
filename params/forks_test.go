package params

import "testing"

func TestForkProgression(t *testing.T) {
	// No preset drops a feature of the preset before it.
	chain := []*ForkConfig{
		FrontierConfig(), HomesteadConfig(), TangerineWhistleConfig(),
		SpuriousDragonConfig(), ByzantiumConfig(), ConstantinopleConfig(),
		IstanbulConfig(), BerlinConfig(), LondonConfig(), MergeConfig(),
		ShanghaiConfig(), CancunConfig(),
	}
	flags := func(c *ForkConfig) []bool {
		return []bool{
			c.HasDelegateCall, c.HasEIP150, c.HasEIP158, c.HasRevert,
			c.HasReturnData, c.HasStaticCall, c.HasShiftOps, c.HasCreate2,
			c.HasExtCodeHash, c.HasChainID, c.HasSelfBalance,
			c.HasNetSstoreMetering, c.HasAccessLists, c.HasBaseFee,
			c.HasPush0, c.HasTransientStorage, c.HasMcopy,
		}
	}
	for i := 1; i < len(chain); i++ {
		prev, cur := flags(chain[i-1]), flags(chain[i])
		for j := range prev {
			if prev[j] && !cur[j] {
				t.Errorf("preset %d dropped feature %d of its predecessor", i, j)
			}
		}
	}
}

func TestForkParameters(t *testing.T) {
	if c := FrontierConfig(); c.GasSload != 50 || c.GasCall != 40 || c.GasExpByte != 10 {
		t.Errorf("frontier prices wrong: %+v", c)
	}
	if c := TangerineWhistleConfig(); c.GasSload != 200 || c.GasCall != 700 || c.GasSelfdestruct != 5000 {
		t.Errorf("tangerine prices wrong: %+v", c)
	}
	if c := SpuriousDragonConfig(); c.GasExpByte != 50 || c.MaxCodeSize != MaxCodeSize {
		t.Errorf("spurious dragon prices wrong: %+v", c)
	}
	if c := IstanbulConfig(); c.GasSload != 800 || !c.HasNetSstoreMetering {
		t.Errorf("istanbul prices wrong: %+v", c)
	}
	if c := BerlinConfig(); c.GasSstoreReset != SstoreResetGasEIP2200-ColdSloadCostEIP2929 {
		t.Errorf("berlin sstore reset: %d", c.GasSstoreReset)
	}
	if c := LondonConfig(); c.SelfdestructRefund != 0 || c.RefundDenominator != 5 ||
		c.GasSstoreClearRefund != SstoreClearsScheduleRefundEIP3529 {
		t.Errorf("london refunds wrong: %+v", c)
	}
	if c := ShanghaiConfig(); c.MaxInitCodeSize != MaxInitCodeSize || !c.HasWarmCoinbase {
		t.Errorf("shanghai limits wrong: %+v", c)
	}
	// Earlier forks have no init code limit.
	if c := LondonConfig(); c.HasInitCodeSizeLimit {
		t.Errorf("init code limit before shanghai")
	}
}
