// Command seed-db loads a JSON fixture of catalog entries, customers,
// campaigns, and coupons into the database for development environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/repository"
)

type seedFile struct {
	Products []struct {
		ID              string          `json:"id"`
		SKU             string          `json:"sku"`
		Name            string          `json:"name"`
		CategoryID      string          `json:"categoryId"`
		Price           decimal.Decimal `json:"price"`
		Taxable         bool            `json:"taxable"`
		LoyaltyEligible bool            `json:"loyaltyEligible"`
		QuantityOnHand  int             `json:"quantityOnHand"`
	} `json:"products"`
	Services []struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		CategoryID      string          `json:"categoryId"`
		Price           decimal.Decimal `json:"price"`
		DurationMinutes int             `json:"durationMinutes"`
		Taxable         bool            `json:"taxable"`
	} `json:"services"`
	Customers []struct {
		ID           string   `json:"id"`
		Name         string   `json:"name"`
		Tags         []string `json:"tags"`
		CustomerType string   `json:"customerType"`
	} `json:"customers"`
	Campaigns []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"campaigns"`
	Coupons []struct {
		Code               string          `json:"code"`
		Status             string          `json:"status"`
		AutoApply          bool            `json:"autoApply"`
		CustomerTags       []string        `json:"customerTags"`
		TagMatchMode       string          `json:"tagMatchMode"`
		TargetCustomerType string          `json:"targetCustomerType"`
		ConditionLogic     string          `json:"conditionLogic"`
		MinPurchase        decimal.Decimal `json:"minPurchase"`
		MaxUses            int             `json:"maxUses"`
		ExpiresAt          *time.Time      `json:"expiresAt"`
		CampaignID         string          `json:"campaignId"`
		Rewards            []struct {
			ID            string          `json:"id"`
			AppliesTo     string          `json:"appliesTo"`
			DiscountType  string          `json:"discountType"`
			DiscountValue decimal.Decimal `json:"discountValue"`
			MaxDiscount   decimal.Decimal `json:"maxDiscount"`
		} `json:"rewards"`
	} `json:"coupons"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/fixtures.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
	slog.Info("seed complete")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return err
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return err
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return err
	}

	for _, p := range seed.Products {
		_, err := pool.Exec(ctx, `INSERT INTO products
			(id, sku, name, category_id, price, taxable, loyalty_eligible, quantity_on_hand)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price, quantity_on_hand = EXCLUDED.quantity_on_hand`,
			p.ID, p.SKU, p.Name, p.CategoryID, p.Price, p.Taxable, p.LoyaltyEligible, p.QuantityOnHand,
		)
		if err != nil {
			return err
		}
	}
	slog.Info("seeded products", "count", len(seed.Products))

	for _, s := range seed.Services {
		_, err := pool.Exec(ctx, `INSERT INTO services
			(id, name, category_id, price, duration_minutes, taxable)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price`,
			s.ID, s.Name, s.CategoryID, s.Price, s.DurationMinutes, s.Taxable,
		)
		if err != nil {
			return err
		}
	}
	slog.Info("seeded services", "count", len(seed.Services))

	for _, c := range seed.Customers {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		_, err := pool.Exec(ctx, `INSERT INTO customers (id, name, tags, customer_type)
			VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, tags, c.CustomerType,
		)
		if err != nil {
			return err
		}
	}
	slog.Info("seeded customers", "count", len(seed.Customers))

	for _, c := range seed.Campaigns {
		_, err := pool.Exec(ctx, `INSERT INTO campaigns (id, name)
			VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name)
		if err != nil {
			return err
		}
	}
	slog.Info("seeded campaigns", "count", len(seed.Campaigns))

	for _, c := range seed.Coupons {
		tags := c.CustomerTags
		if tags == nil {
			tags = []string{}
		}
		_, err := pool.Exec(ctx, `INSERT INTO coupons
			(code, status, auto_apply, customer_tags, tag_match_mode, target_customer_type,
			 condition_logic, min_purchase, max_uses, expires_at, campaign_id)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, NULLIF($11, ''))
			ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Status, c.AutoApply, tags, orDefault(c.TagMatchMode, "any"), c.TargetCustomerType,
			orDefault(c.ConditionLogic, "and"), c.MinPurchase, c.MaxUses, c.ExpiresAt, c.CampaignID,
		)
		if err != nil {
			return err
		}
		for _, rw := range c.Rewards {
			_, err := pool.Exec(ctx, `INSERT INTO coupon_rewards
				(id, coupon_code, applies_to, discount_type, discount_value, max_discount)
				VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
				ON CONFLICT (id) DO NOTHING`,
				rw.ID, c.Code, rw.AppliesTo, rw.DiscountType, rw.DiscountValue, rw.MaxDiscount,
			)
			if err != nil {
				return err
			}
		}
	}
	slog.Info("seeded coupons", "count", len(seed.Coupons))

	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
