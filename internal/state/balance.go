package state

import "github.com/atomicstack/swap-control/internal/daemon"

type BalanceStore interface {
	Balance() (daemon.Balance, bool)
	SetBalance(daemon.Balance)
}

type balanceStore struct {
	balance daemon.Balance
	known   bool
}

func NewBalanceStore() BalanceStore {
	return &balanceStore{}
}

func (s *balanceStore) Balance() (daemon.Balance, bool) {
	return s.balance, s.known
}

func (s *balanceStore) SetBalance(b daemon.Balance) {
	s.balance = b
	s.known = true
}
