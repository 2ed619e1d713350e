package service

import (
	"context"
	"fmt"
	"math/big"

	"blocklucky/events"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

type lotteryService struct {
	uowFactory UnitOfWorkFactory
	lotteryID  int64
	random     RandomSource
}

// NewLotteryService creates the service for the lottery deployed as lotteryID
func NewLotteryService(uowFactory UnitOfWorkFactory, lotteryID int64, random RandomSource) LotteryService {
	if random == nil {
		random = CryptoRandomSource{}
	}
	return &lotteryService{
		uowFactory: uowFactory,
		lotteryID:  lotteryID,
		random:     random,
	}
}

// Deploy creates a new lottery owned by owner and returns it with its ID set
func Deploy(ctx context.Context, uowFactory UnitOfWorkFactory, owner common.Address, minParticipants uint64, ticketPrice *big.Int) (*models.Lottery, error) {
	lottery, err := models.NewLottery(owner, minParticipants, ticketPrice)
	if err != nil {
		return nil, err
	}

	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.LotteryRepository().Create(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to create lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"lotteryID":       lottery.ID,
		"owner":           owner.Hex(),
		"minParticipants": minParticipants,
		"ticketPrice":     models.FormatEther(ticketPrice),
	}).Info("Lottery deployed")

	return lottery, nil
}

// BuyTicket buys one ticket at the list price
func (s *lotteryService) BuyTicket(ctx context.Context, call Call) (*PurchaseReceipt, error) {
	return s.purchase(ctx, call, 1, false)
}

// BuyTickets buys a batch at the discounted price
func (s *lotteryService) BuyTickets(ctx context.Context, call Call, quantity uint64) (*PurchaseReceipt, error) {
	if !models.ValidBatchQuantity(quantity) {
		return nil, models.ErrInvalidQuantity
	}
	return s.purchase(ctx, call, quantity, true)
}

func (s *lotteryService) purchase(ctx context.Context, call Call, quantity uint64, batch bool) (*PurchaseReceipt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := s.loadForUpdate(ctx, uow)
	if err != nil {
		return nil, err
	}

	if err := lottery.CanPurchaseTickets(); err != nil {
		return nil, err
	}

	quote := models.Quote{Quantity: 1, TotalPrice: new(big.Int).Set(lottery.TicketPrice)}
	if batch {
		quote = models.CalculatePrice(lottery.TicketPrice, quantity)
	}
	if call.Value == nil || call.Value.Cmp(quote.TotalPrice) != 0 {
		return nil, fmt.Errorf("%w: expected %s ether, got %s ether", models.ErrInvalidAmount,
			models.FormatEther(quote.TotalPrice), models.FormatEther(call.Value))
	}

	if err := s.consumeNonce(ctx, uow, call); err != nil {
		return nil, err
	}

	account, err := uow.AccountRepository().Debit(ctx, call.From, quote.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to charge %s: %w", call.From.Hex(), err)
	}
	metadata := map[string]any{
		"round":    lottery.Round,
		"quantity": quantity,
		"discount": quote.DiscountPercent,
	}
	if err := RecordBalanceChange(ctx, uow, account, new(big.Int).Neg(quote.TotalPrice), models.TransactionTypeTicketPurchase, &lottery.ID, metadata); err != nil {
		return nil, err
	}

	isNew := lottery.AddTickets(call.From, quantity, quote.TotalPrice)
	ref := events.LotteryRef{LotteryID: lottery.ID, Round: lottery.Round}

	var event events.Event = events.TicketPurchasedEvent{
		LotteryRef:          ref,
		Buyer:               call.From,
		TicketPrice:         new(big.Int).Set(quote.TotalPrice),
		Quantity:            1,
		NewParticipantCount: uint64(lottery.ParticipantCount()),
	}
	if batch {
		event = events.TicketsBoughtEvent{
			LotteryRef: ref,
			Buyer:      call.From,
			Quantity:   quantity,
			TotalPrice: new(big.Int).Set(quote.TotalPrice),
			Discount:   quote.DiscountPercent,
		}
	}
	if err := PublishEvent(ctx, uow, event); err != nil {
		return nil, err
	}

	receipt := &PurchaseReceipt{
		LotteryID:        lottery.ID,
		Round:            lottery.Round,
		Buyer:            call.From,
		Quantity:         quantity,
		TotalPrice:       quote.TotalPrice,
		DiscountPercent:  quote.DiscountPercent,
		NewParticipant:   isNew,
		ParticipantCount: uint64(lottery.ParticipantCount()),
	}

	if lottery.ThresholdReached() {
		if err := s.draw(ctx, uow, lottery, receipt); err != nil {
			return nil, err
		}
	}

	if err := uow.LotteryRepository().Save(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to save lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"lotteryID":        lottery.ID,
		"round":            lottery.Round,
		"buyer":            call.From.Hex(),
		"quantity":         quantity,
		"paid":             models.FormatEther(quote.TotalPrice),
		"participantCount": receipt.ParticipantCount,
		"drawn":            receipt.Drawn,
	}).Info("Tickets purchased")

	return receipt, nil
}

// draw selects and pays the winner. Any failure aborts the surrounding
// purchase so the buyer keeps their funds.
func (s *lotteryService) draw(ctx context.Context, uow UnitOfWork, lottery *models.Lottery, receipt *PurchaseReceipt) error {
	ref := events.LotteryRef{LotteryID: lottery.ID, Round: lottery.Round}
	participants := lottery.Participants

	if err := PublishEvent(ctx, uow, events.LotteryTriggeredEvent{
		LotteryRef:        ref,
		TotalParticipants: uint64(len(participants)),
		TotalPot:          new(big.Int).Set(lottery.Pot),
	}); err != nil {
		return err
	}

	index, err := s.random.Intn(ctx, DrawContext{
		LotteryID:    lottery.ID,
		Round:        lottery.Round,
		Participants: participants,
		Pot:          new(big.Int).Set(lottery.Pot),
	}, len(participants))
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrPayoutFailed, err)
	}
	if index < 0 || index >= len(participants) {
		return fmt.Errorf("%w: random index %d out of range", models.ErrPayoutFailed, index)
	}

	winner := participants[index]
	prize := lottery.Complete(winner)

	account, err := uow.AccountRepository().Credit(ctx, winner, prize)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrPayoutFailed, err)
	}
	if err := RecordBalanceChange(ctx, uow, account, prize, models.TransactionTypePrizePayout, &lottery.ID, map[string]any{
		"round": lottery.Round,
	}); err != nil {
		return err
	}

	if err := PublishEvent(ctx, uow, events.WinnerSelectedEvent{
		LotteryRef: ref,
		Winner:     winner,
		Prize:      new(big.Int).Set(prize),
	}); err != nil {
		return err
	}

	receipt.Drawn = true
	receipt.Winner = winner
	receipt.Prize = prize

	log.WithFields(log.Fields{
		"lotteryID":    lottery.ID,
		"round":        lottery.Round,
		"winner":       winner.Hex(),
		"prize":        models.FormatEther(prize),
		"participants": len(participants),
	}).Info("Lottery winner selected")

	return nil
}

// ResetLottery opens a new round requiring newMinParticipants buyers
func (s *lotteryService) ResetLottery(ctx context.Context, call Call, newMinParticipants uint64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := s.loadForUpdate(ctx, uow)
	if err != nil {
		return err
	}

	if err := s.authorizeOwner(ctx, uow, lottery, call); err != nil {
		return err
	}

	forfeited, err := lottery.Reset(newMinParticipants)
	if err != nil {
		return err
	}

	if err := PublishEvent(ctx, uow, events.LotteryResetEvent{
		LotteryRef:         events.LotteryRef{LotteryID: lottery.ID, Round: lottery.Round},
		NewMinParticipants: newMinParticipants,
		ForfeitedPot:       new(big.Int).Set(forfeited),
	}); err != nil {
		return err
	}

	if err := uow.LotteryRepository().Save(ctx, lottery); err != nil {
		return fmt.Errorf("failed to save lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	fields := log.Fields{
		"lotteryID":       lottery.ID,
		"round":           lottery.Round,
		"minParticipants": newMinParticipants,
	}
	if forfeited.Sign() > 0 {
		fields["forfeited"] = models.FormatEther(forfeited)
		log.WithFields(fields).Warn("Lottery reset with an undrawn pot")
	} else {
		log.WithFields(fields).Info("Lottery reset")
	}

	return nil
}

// EmergencyWithdraw transfers the whole pot to the owner
func (s *lotteryService) EmergencyWithdraw(ctx context.Context, call Call) (*big.Int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := s.loadForUpdate(ctx, uow)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwner(ctx, uow, lottery, call); err != nil {
		return nil, err
	}

	amount := lottery.Withdraw()
	if amount.Sign() > 0 {
		account, err := uow.AccountRepository().Credit(ctx, lottery.Owner, amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrPayoutFailed, err)
		}
		if err := RecordBalanceChange(ctx, uow, account, amount, models.TransactionTypeEmergencyWithdrawal, &lottery.ID, map[string]any{
			"round": lottery.Round,
		}); err != nil {
			return nil, err
		}
	}

	if err := PublishEvent(ctx, uow, events.EmergencyWithdrawalEvent{
		LotteryRef: events.LotteryRef{LotteryID: lottery.ID, Round: lottery.Round},
		Owner:      lottery.Owner,
		Amount:     new(big.Int).Set(amount),
	}); err != nil {
		return nil, err
	}

	if err := uow.LotteryRepository().Save(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to save lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"lotteryID": lottery.ID,
		"round":     lottery.Round,
		"amount":    models.FormatEther(amount),
	}).Warn("Emergency withdrawal executed")

	return amount, nil
}

// authorizeOwner rejects calls not made by the owner or carrying value
func (s *lotteryService) authorizeOwner(ctx context.Context, uow UnitOfWork, lottery *models.Lottery, call Call) error {
	if !lottery.IsOwner(call.From) {
		return models.ErrUnauthorized
	}
	if call.Value != nil && call.Value.Sign() != 0 {
		return fmt.Errorf("%w: owner functions do not accept funds", models.ErrInvalidAmount)
	}
	return s.consumeNonce(ctx, uow, call)
}

func (s *lotteryService) consumeNonce(ctx context.Context, uow UnitOfWork, call Call) error {
	if call.Nonce == nil {
		return nil
	}
	if err := uow.AccountRepository().ConsumeNonce(ctx, call.From, *call.Nonce); err != nil {
		return fmt.Errorf("failed to consume nonce for %s: %w", call.From.Hex(), err)
	}
	return nil
}

func (s *lotteryService) loadForUpdate(ctx context.Context, uow UnitOfWork) (*models.Lottery, error) {
	lottery, err := uow.LotteryRepository().GetByIDForUpdate(ctx, s.lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lottery %d: %w", s.lotteryID, err)
	}
	if lottery == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrLotteryNotFound, s.lotteryID)
	}
	return lottery, nil
}

// CalculatePrice quotes quantity tickets at the lottery's ticket price
func (s *lotteryService) CalculatePrice(ctx context.Context, quantity uint64) (models.Quote, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return models.Quote{}, err
	}
	return models.CalculatePrice(lottery.TicketPrice, quantity), nil
}

// GetLottery returns a snapshot of the lottery state
func (s *lotteryService) GetLottery(ctx context.Context) (*models.Lottery, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := uow.LotteryRepository().GetByID(ctx, s.lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lottery %d: %w", s.lotteryID, err)
	}
	if lottery == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrLotteryNotFound, s.lotteryID)
	}
	return lottery, nil
}

func (s *lotteryService) GetLotteryInfo(ctx context.Context) (*models.LotteryInfo, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return nil, err
	}
	info := lottery.Info()
	return &info, nil
}

func (s *lotteryService) GetAllParticipants(ctx context.Context) ([]common.Address, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return nil, err
	}
	return lottery.Participants, nil
}

func (s *lotteryService) HasParticipated(ctx context.Context, address common.Address) (bool, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return false, err
	}
	return lottery.HasParticipated(address), nil
}

func (s *lotteryService) TicketsByAddress(ctx context.Context, address common.Address) (uint64, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return 0, err
	}
	return lottery.TicketsByAddress[address], nil
}

func (s *lotteryService) Owner(ctx context.Context) (common.Address, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return lottery.Owner, nil
}

func (s *lotteryService) TicketPrice(ctx context.Context) (*big.Int, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return nil, err
	}
	return lottery.TicketPrice, nil
}

func (s *lotteryService) MinParticipants(ctx context.Context) (uint64, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return 0, err
	}
	return lottery.MinParticipants, nil
}

func (s *lotteryService) ParticipantCount(ctx context.Context) (uint64, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(lottery.ParticipantCount()), nil
}

func (s *lotteryService) Pot(ctx context.Context) (*big.Int, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return nil, err
	}
	return lottery.Pot, nil
}

func (s *lotteryService) Active(ctx context.Context) (bool, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return false, err
	}
	return lottery.Active, nil
}

func (s *lotteryService) Completed(ctx context.Context) (bool, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return false, err
	}
	return lottery.Completed, nil
}

func (s *lotteryService) Winner(ctx context.Context) (common.Address, error) {
	lottery, err := s.GetLottery(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return lottery.Winner, nil
}

// GetEvents returns this lottery's logged events after afterSeq
func (s *lotteryService) GetEvents(ctx context.Context, afterSeq int64, limit int) ([]*models.LogEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.EventLogRepository().List(ctx, s.lotteryID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return entries, nil
}
