package custodyinmemory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Ledger is an in-memory native currency ledger, meant for development and
// testing. Payments collected by the escrow are held by the custody address.
type Ledger struct {
	custodyAddress string
	balances       map[string]uint64
	lock           *sync.RWMutex
}

func NewLedger(custodyAddress string) (*Ledger, error) {
	if custodyAddress == "" {
		return nil, fmt.Errorf("missing custody address")
	}
	return &Ledger{
		custodyAddress: custodyAddress,
		balances:       make(map[string]uint64),
		lock:           &sync.RWMutex{},
	}, nil
}

// Fund credits the given address with the given amount.
func (l *Ledger) Fund(address string, amount uint64) error {
	if address == "" {
		return fmt.Errorf("missing address")
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.balances[address] > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	l.balances[address] += amount
	return nil
}

func (l *Ledger) Collect(_ context.Context, from string, amount uint64) error {
	return l.transfer(from, l.custodyAddress, amount)
}

func (l *Ledger) SendTo(_ context.Context, to string, amount uint64) error {
	return l.transfer(l.custodyAddress, to, amount)
}

func (l *Ledger) BalanceOf(_ context.Context, address string) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[address], nil
}

func (l *Ledger) transfer(from, to string, amount uint64) error {
	if from == "" || to == "" {
		return fmt.Errorf("missing sender or recipient")
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	if from != to && l.balances[to] > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
