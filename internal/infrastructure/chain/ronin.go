package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
)

// ronDecimals is the base asset precision (RON, like ether).
const ronDecimals = 18

// receiptPollInterval paces the mined-receipt polling loop.
const receiptPollInterval = 3 * time.Second

const routerABIJSON = `[
	{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"getAmountsIn","type":"function","stateMutability":"view","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapExactRONForTokens","type":"function","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapRONForExactTokens","type":"function","stateMutability":"payable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapExactTokensForRON","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapTokensForExactRON","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// RoninAdapter executes swaps through the Katana router with a single
// long-lived RPC client and one signing account. Transaction submission
// is serialized behind submitMu so concurrent workers cannot race the
// account nonce.
type RoninAdapter struct {
	client    *ethclient.Client
	chainID   *big.Int
	key       *ecdsa.PrivateKey
	account   common.Address
	router    common.Address
	wron      common.Address
	routerABI abi.ABI
	erc20ABI  abi.ABI
	logger    *zap.Logger

	submitMu sync.Mutex

	decMu    sync.Mutex
	decimals map[common.Address]int32
}

func NewRoninAdapter(ctx context.Context, rpcURL, privateKeyHex, routerAddress, wronAddress string, logger *zap.Logger) (*RoninAdapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, err
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, err
	}

	return &RoninAdapter{
		client:    client,
		chainID:   chainID,
		key:       key,
		account:   crypto.PubkeyToAddress(key.PublicKey),
		router:    common.HexToAddress(routerAddress),
		wron:      common.HexToAddress(wronAddress),
		routerABI: routerABI,
		erc20ABI:  erc20ABI,
		logger:    logger,
		decimals:  make(map[common.Address]int32),
	}, nil
}

func (a *RoninAdapter) AccountAddress() string {
	return a.account.Hex()
}

func (a *RoninAdapter) Close() {
	a.client.Close()
}

// path returns the router hop sequence for a direction.
func (a *RoninAdapter) path(token common.Address, dir domain.Direction) []common.Address {
	if dir == domain.DirectionSell {
		return []common.Address{token, a.wron}
	}
	return []common.Address{a.wron, token}
}

func (a *RoninAdapter) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{From: a.account, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	res, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return res, nil
}

func (a *RoninAdapter) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	a.decMu.Lock()
	if d, ok := a.decimals[token]; ok {
		a.decMu.Unlock()
		return d, nil
	}
	a.decMu.Unlock()

	out, err := a.call(ctx, token, a.erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	d := int32(out[0].(uint8))

	a.decMu.Lock()
	a.decimals[token] = d
	a.decMu.Unlock()
	return d, nil
}

// TokenSymbol returns the on-chain symbol of a token contract.
func (a *RoninAdapter) TokenSymbol(ctx context.Context, tokenAddress string) (string, error) {
	out, err := a.call(ctx, common.HexToAddress(tokenAddress), a.erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (a *RoninAdapter) quote(ctx context.Context, method string, fixed *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := a.call(ctx, a.router, a.routerABI, method, fixed, path)
	if err != nil {
		return nil, err
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("%s returned no amounts", method)
	}
	return amounts, nil
}

// QuoteOutput returns the expected output for a fixed input amount.
func (a *RoninAdapter) QuoteOutput(ctx context.Context, tokenAddress string, amountIn decimal.Decimal, dir domain.Direction) (decimal.Decimal, error) {
	token := common.HexToAddress(tokenAddress)
	inDec, outDec, err := a.legDecimals(ctx, token, dir)
	if err != nil {
		return decimal.Zero, err
	}
	amounts, err := a.quote(ctx, "getAmountsOut", toUnits(amountIn, inDec, false), a.path(token, dir))
	if err != nil {
		return decimal.Zero, err
	}
	return fromUnits(amounts[len(amounts)-1], outDec), nil
}

// QuoteInput returns the required input for a fixed output amount.
func (a *RoninAdapter) QuoteInput(ctx context.Context, tokenAddress string, amountOut decimal.Decimal, dir domain.Direction) (decimal.Decimal, error) {
	token := common.HexToAddress(tokenAddress)
	inDec, outDec, err := a.legDecimals(ctx, token, dir)
	if err != nil {
		return decimal.Zero, err
	}
	amounts, err := a.quote(ctx, "getAmountsIn", toUnits(amountOut, outDec, false), a.path(token, dir))
	if err != nil {
		return decimal.Zero, err
	}
	return fromUnits(amounts[0], inDec), nil
}

// legDecimals returns (input, output) decimal precision for a direction.
func (a *RoninAdapter) legDecimals(ctx context.Context, token common.Address, dir domain.Direction) (int32, int32, error) {
	d, err := a.tokenDecimals(ctx, token)
	if err != nil {
		return 0, 0, err
	}
	if dir == domain.DirectionSell {
		return d, ronDecimals, nil
	}
	return ronDecimals, d, nil
}

// Balances returns the account's RON and token balances in human units.
func (a *RoninAdapter) Balances(ctx context.Context, tokenAddress string) (*domain.Balances, error) {
	token := common.HexToAddress(tokenAddress)
	ron, err := a.client.BalanceAt(ctx, a.account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RON balance: %w", err)
	}
	out, err := a.call(ctx, token, a.erc20ABI, "balanceOf", a.account)
	if err != nil {
		return nil, err
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned unexpected type")
	}
	d, err := a.tokenDecimals(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.Balances{
		Base:  fromUnits(ron, ronDecimals),
		Token: fromUnits(bal, d),
	}, nil
}

// AccountBalance returns the account's RON balance in human units.
func (a *RoninAdapter) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	ron, err := a.client.BalanceAt(ctx, a.account, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch RON balance: %w", err)
	}
	return fromUnits(ron, ronDecimals), nil
}

// ExecuteSwap submits one router swap and blocks until it is mined or
// the order deadline passes. The four router entry points collapse onto
// the (direction, amount mode) pair of the order.
func (a *RoninAdapter) ExecuteSwap(ctx context.Context, order domain.SwapOrder) (*domain.Settlement, error) {
	token := common.HexToAddress(order.TokenAddress)
	tokenDec, err := a.tokenDecimals(ctx, token)
	if err != nil {
		return nil, err
	}
	deadline := big.NewInt(order.Deadline.Unix())
	path := a.path(token, order.Direction)

	var (
		method string
		args   []interface{}
		value  *big.Int
	)
	switch {
	case order.Direction == domain.DirectionBuy && order.Mode == domain.ExactInput:
		method = "swapExactRONForTokens"
		value = toUnits(order.Amount, ronDecimals, false)
		args = []interface{}{toUnits(order.Bound, tokenDec, false), path, a.account, deadline}

	case order.Direction == domain.DirectionBuy && order.Mode == domain.ExactOutput:
		method = "swapRONForExactTokens"
		value = toUnits(order.Bound, ronDecimals, true)
		args = []interface{}{toUnits(order.Amount, tokenDec, false), path, a.account, deadline}

	case order.Direction == domain.DirectionSell && order.Mode == domain.ExactInput:
		method = "swapExactTokensForRON"
		amountIn := toUnits(order.Amount, tokenDec, false)
		if err := a.ensureAllowance(ctx, token, amountIn); err != nil {
			return nil, err
		}
		args = []interface{}{amountIn, toUnits(order.Bound, ronDecimals, false), path, a.account, deadline}

	case order.Direction == domain.DirectionSell && order.Mode == domain.ExactOutput:
		method = "swapTokensForExactRON"
		maxIn := toUnits(order.Bound, tokenDec, true)
		if err := a.ensureAllowance(ctx, token, maxIn); err != nil {
			return nil, err
		}
		args = []interface{}{toUnits(order.Amount, ronDecimals, false), maxIn, path, a.account, deadline}

	default:
		return nil, fmt.Errorf("unsupported swap direction/mode combination")
	}

	data, err := a.routerABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	a.logger.Info("submitting swap",
		zap.String("method", method),
		zap.String("token", order.TokenAddress),
		zap.String("amount", order.Amount.String()),
		zap.String("bound", order.Bound.String()))

	receipt, hash, err := a.submit(ctx, a.router, value, data, order.Deadline)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", hash.Hex())
	}

	return &domain.Settlement{
		TxHash:  hash.Hex(),
		GasCost: gasCost(receipt),
	}, nil
}

// ensureAllowance approves the router to spend `required` token units
// when the current allowance is insufficient.
func (a *RoninAdapter) ensureAllowance(ctx context.Context, token common.Address, required *big.Int) error {
	out, err := a.call(ctx, token, a.erc20ABI, "allowance", a.account, a.router)
	if err != nil {
		return err
	}
	current, ok := out[0].(*big.Int)
	if !ok {
		return fmt.Errorf("allowance returned unexpected type")
	}
	if current.Cmp(required) >= 0 {
		return nil
	}

	a.logger.Info("approving router allowance",
		zap.String("token", token.Hex()), zap.String("amount", required.String()))
	data, err := a.erc20ABI.Pack("approve", a.router, required)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	receipt, hash, err := a.submit(ctx, token, nil, data, time.Now().Add(5*time.Minute))
	if err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("approve transaction %s reverted", hash.Hex())
	}
	return nil
}

// submit signs and sends one transaction and waits for its receipt.
// Holding submitMu across nonce fetch and send keeps submissions from a
// single account strictly ordered.
func (a *RoninAdapter) submit(ctx context.Context, to common.Address, value *big.Int, data []byte, deadline time.Time) (*types.Receipt, common.Hash, error) {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	nonce, err := a.client.PendingNonceAt(ctx, a.account)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	gasLimit, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: a.account, To: &to, Value: value, Data: data,
	})
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("gas estimation failed: %w", err)
	}
	gasLimit += gasLimit / 5

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), a.key)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	a.logger.Info("transaction sent", zap.String("hash", signed.Hash().Hex()))
	receipt, err := a.waitMined(ctx, signed.Hash(), deadline)
	return receipt, signed.Hash(), err
}

func (a *RoninAdapter) waitMined(ctx context.Context, hash common.Hash, deadline time.Time) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			a.logger.Debug("receipt poll error", zap.Error(err))
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transaction %s not mined before deadline", hash.Hex())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func gasCost(receipt *types.Receipt) decimal.Decimal {
	price := receipt.EffectiveGasPrice
	if price == nil {
		return decimal.Zero
	}
	used := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price)
	return fromUnits(used, ronDecimals)
}

// toUnits converts a human-unit amount to integer chain units. Rounding
// is explicit so protective bounds stay protective after conversion.
func toUnits(amount decimal.Decimal, decimals int32, roundUp bool) *big.Int {
	scaled := amount.Shift(decimals)
	if roundUp {
		scaled = scaled.Ceil()
	} else {
		scaled = scaled.Floor()
	}
	return scaled.BigInt()
}

func fromUnits(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, 0).Shift(-decimals)
}
