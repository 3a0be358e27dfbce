package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the on-chain RentalAgreement contract. The gateway depends only on
// this interface shape; the bytecode is supplied separately at startup.
const rentalAgreementABI = `[
	{"inputs":[
		{"internalType":"address","name":"_tenant","type":"address"},
		{"internalType":"uint256","name":"_rentAmount","type":"uint256"},
		{"internalType":"uint256","name":"_depositAmount","type":"uint256"},
		{"internalType":"uint256","name":"_startTimestamp","type":"uint256"},
		{"internalType":"uint256","name":"_endTimestamp","type":"uint256"}
	],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[],"name":"isContractActive","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"isFullySigned","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getRentAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getDepositAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getContractState","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getContractEndDate","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"signAgreement","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"payRent","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[],"name":"payDeposit","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[],"name":"terminateContract","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_timestamp","type":"uint256"}],"name":"simularPassagemDeTempo","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"autoRenew","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var rentalABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(rentalAgreementABI))
	if err != nil {
		panic("invalid rental agreement ABI: " + err.Error())
	}
	return parsed
}
