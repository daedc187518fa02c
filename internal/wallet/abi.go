package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20JSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const delegationContractJSON = `[
	{"type":"function","name":"delegate","stateMutability":"nonpayable",
	 "inputs":[{"name":"delegatee","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[]}
]`

const votesTokenJSON = `[
	{"type":"function","name":"delegate","stateMutability":"nonpayable",
	 "inputs":[{"name":"delegatee","type":"address"}],
	 "outputs":[]}
]`

var (
	// ERC20 covers approve and balanceOf.
	ERC20 = mustParseABI(erc20JSON)
	// DelegationContract is the intermediary that pulls approved tokens and
	// delegates them to a delegatee.
	DelegationContract = mustParseABI(delegationContractJSON)
	// VotesToken is a governance token with built-in delegate(address).
	VotesToken = mustParseABI(votesTokenJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("wallet: invalid ABI fragment: " + err.Error())
	}
	return parsed
}
