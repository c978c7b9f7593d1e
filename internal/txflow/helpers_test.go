package txflow_test

import (
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/testutil"
)

func testCalls() chain.Calls {
	return chain.NewCalls(testutil.HuntContract, testutil.RaffleContract)
}
