package api

import (
	"math/big"
	"time"

	"blocklucky/models"
	"blocklucky/service"

	"github.com/ethereum/go-ethereum/common"
)

// Wei amounts are rendered as decimal strings, with an ether companion for display

type lotteryView struct {
	ID               int64            `json:"id"`
	Owner            common.Address   `json:"owner"`
	TicketPrice      string           `json:"ticketPrice"`
	TicketPriceEther string           `json:"ticketPriceEther"`
	MinParticipants  uint64           `json:"minParticipants"`
	Round            int64            `json:"round"`
	ParticipantCount uint64           `json:"participantCount"`
	Participants     []common.Address `json:"participants"`
	Pot              string           `json:"pot"`
	PotEther         string           `json:"potEther"`
	Forfeited        string           `json:"forfeited"`
	Active           bool             `json:"active"`
	Completed        bool             `json:"completed"`
	Winner           common.Address   `json:"winner"`
}

func newLotteryView(l *models.Lottery) lotteryView {
	return lotteryView{
		ID:               l.ID,
		Owner:            l.Owner,
		TicketPrice:      l.TicketPrice.String(),
		TicketPriceEther: models.FormatEther(l.TicketPrice),
		MinParticipants:  l.MinParticipants,
		Round:            l.Round,
		ParticipantCount: uint64(l.ParticipantCount()),
		Participants:     l.Participants,
		Pot:              l.Pot.String(),
		PotEther:         models.FormatEther(l.Pot),
		Forfeited:        weiString(l.Forfeited),
		Active:           l.Active,
		Completed:        l.Completed,
		Winner:           l.Winner,
	}
}

type infoView struct {
	ParticipantCount uint64         `json:"participantCount"`
	Pot              string         `json:"pot"`
	MinParticipants  uint64         `json:"minParticipants"`
	Active           bool           `json:"active"`
	Completed        bool           `json:"completed"`
	Winner           common.Address `json:"winner"`
}

func newInfoView(info *models.LotteryInfo) infoView {
	return infoView{
		ParticipantCount: info.ParticipantCount,
		Pot:              info.Pot.String(),
		MinParticipants:  info.MinParticipants,
		Active:           info.Active,
		Completed:        info.Completed,
		Winner:           info.Winner,
	}
}

type quoteView struct {
	Quantity        uint64 `json:"quantity"`
	TotalPrice      string `json:"totalPrice"`
	TotalPriceEther string `json:"totalPriceEther"`
	DiscountPercent uint64 `json:"discountPercent"`
}

type receiptView struct {
	LotteryID        int64          `json:"lotteryId"`
	Round            int64          `json:"round"`
	Buyer            common.Address `json:"buyer"`
	Quantity         uint64         `json:"quantity"`
	TotalPrice       string         `json:"totalPrice"`
	DiscountPercent  uint64         `json:"discountPercent"`
	NewParticipant   bool           `json:"newParticipant"`
	ParticipantCount uint64         `json:"participantCount"`
	Drawn            bool           `json:"drawn"`
	Winner           common.Address `json:"winner"`
	Prize            string         `json:"prize,omitempty"`
}

func newReceiptView(r *service.PurchaseReceipt) receiptView {
	v := receiptView{
		LotteryID:        r.LotteryID,
		Round:            r.Round,
		Buyer:            r.Buyer,
		Quantity:         r.Quantity,
		TotalPrice:       weiString(r.TotalPrice),
		DiscountPercent:  r.DiscountPercent,
		NewParticipant:   r.NewParticipant,
		ParticipantCount: r.ParticipantCount,
		Drawn:            r.Drawn,
	}
	if r.Drawn {
		v.Winner = r.Winner
		v.Prize = weiString(r.Prize)
	}
	return v
}

type historyView struct {
	LotteryID       *int64         `json:"lotteryId,omitempty"`
	TransactionType string         `json:"transactionType"`
	ChangeAmount    string         `json:"changeAmount"`
	BalanceAfter    string         `json:"balanceAfter"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

type accountView struct {
	Address         common.Address `json:"address"`
	Balance         string         `json:"balance"`
	BalanceEther    string         `json:"balanceEther"`
	Nonce           uint64         `json:"nonce"`
	RejectsPayments bool           `json:"rejectsPayments"`
	History         []historyView  `json:"history,omitempty"`
}

func newAccountView(a *models.Account, history []*models.BalanceHistory) accountView {
	v := accountView{
		Address:         a.Address,
		Balance:         a.Balance.String(),
		BalanceEther:    models.FormatEther(a.Balance),
		Nonce:           a.Nonce,
		RejectsPayments: a.RejectsPayments,
	}
	for _, h := range history {
		v.History = append(v.History, historyView{
			LotteryID:       h.LotteryID,
			TransactionType: string(h.TransactionType),
			ChangeAmount:    weiString(h.ChangeAmount),
			BalanceAfter:    weiString(h.BalanceAfter),
			Metadata:        h.TransactionMetadata,
			CreatedAt:       h.CreatedAt,
		})
	}
	return v
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
