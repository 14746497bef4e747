package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
)

// pricingInput 预估与下单共用的计价输入
type pricingInput struct {
	WeightKg     decimal.Decimal
	Formula      string
	Options      pricing.Options
	DiscountKind string
}

// buildRequest 预估与下单都通过这里构造请求，再交给同一个 Calculator
func buildRequest(client *model.Client, in pricingInput, usedKg decimal.Decimal) (pricing.Request, error) {
	tier, err := pricing.ParseClientTier(client.Tier)
	if err != nil {
		return pricing.Request{}, err
	}
	formula, err := pricing.ParseFormula(in.Formula)
	if err != nil {
		return pricing.Request{}, err
	}

	req := pricing.Request{
		WeightKg:     in.WeightKg,
		Formula:      formula,
		Options:      in.Options,
		ClientTier:   tier,
		DiscountKind: pricing.ParseDiscountKind(in.DiscountKind),
	}
	if tier == pricing.TierPremium {
		req.MonthlyUsedKg = &usedKg
	}
	return req, nil
}

type PricingService struct {
	calc       *pricing.Calculator
	clientRepo *repository.ClientRepository
	subs       *SubscriptionService
}

func NewPricingService(
	calc *pricing.Calculator,
	clientRepo *repository.ClientRepository,
	subs *SubscriptionService,
) *PricingService {
	return &PricingService{
		calc:       calc,
		clientRepo: clientRepo,
		subs:       subs,
	}
}

// Quote 报价预估，不写入任何状态
func (s *PricingService) Quote(ctx context.Context, req *dto.QuoteRequest) (*pricing.Breakdown, error) {
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	used := decimal.Zero
	if client.Tier == string(pricing.TierPremium) {
		if used, err = s.subs.UsedKg(ctx, client.ID); err != nil {
			return nil, err
		}
	}

	preq, err := buildRequest(client, pricingInput{
		WeightKg:     req.WeightKg,
		Formula:      req.Formula,
		Options:      req.Options,
		DiscountKind: req.DiscountKind,
	}, used)
	if err != nil {
		return nil, err
	}

	return s.calc.Compute(preq)
}

// Tariff 当前价目表
func (s *PricingService) Tariff() pricing.Tariff {
	return s.calc.Tariff()
}
