package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/horseshoedev/mythrilmerch/internal/config"
	"github.com/horseshoedev/mythrilmerch/internal/db"
	"github.com/horseshoedev/mythrilmerch/internal/events"
	"github.com/horseshoedev/mythrilmerch/internal/models"
	"github.com/horseshoedev/mythrilmerch/internal/pool"
	"github.com/horseshoedev/mythrilmerch/internal/search"
	"github.com/horseshoedev/mythrilmerch/internal/store"
)

// Product rows are created only here; there is no HTTP route for it.
var defaultProducts = []models.Product{
	{
		Name:        "Mythril Gaming T-Shirt",
		Description: "Premium cotton gaming t-shirt featuring the iconic Mythril logo.",
		Price:       24.99,
		ImageURL:    "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400&h=400&fit=crop",
	},
	{
		Name:        "Mythril Hoodie",
		Description: "Comfortable and stylish hoodie with embroidered Mythril design.",
		Price:       49.99,
		ImageURL:    "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=400&h=400&fit=crop",
	},
	{
		Name:        "Mythril Gaming Mug",
		Description: "Ceramic gaming mug with Mythril branding. Holds 12oz of your favorite beverage.",
		Price:       14.99,
		ImageURL:    "https://images.unsplash.com/photo-1514228742587-6b1558fcca3d?w=400&h=400&fit=crop",
	},
	{
		Name:        "Mythril Sticker Pack",
		Description: "Set of 5 high-quality vinyl stickers featuring Mythril designs.",
		Price:       8.99,
		ImageURL:    "https://images.unsplash.com/photo-1606107557195-0e29a4b5b4aa?w=400&h=400&fit=crop",
	},
	{
		Name:        "Mythril Gaming Mouse Pad",
		Description: "Large gaming mouse pad with Mythril design and non-slip rubber base.",
		Price:       19.99,
		ImageURL:    "https://images.unsplash.com/photo-1615663245857-ac93bb7c39e7?w=400&h=400&fit=crop",
	},
	{
		Name:        "Mythril Gaming Headset",
		Description: "High-quality gaming headset with noise-cancelling microphone.",
		Price:       79.99,
		ImageURL:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=400&fit=crop",
	},
}

func main() {
	file := flag.String("file", "", "JSON file with products to seed (defaults to the built-in catalog)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	products := defaultProducts
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("read %s: %v", *file, err)
		}
		products = nil
		if err := json.Unmarshal(data, &products); err != nil {
			log.Fatalf("parse %s: %v", *file, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gormDB, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	dbPool, err := pool.New(gormDB, cfg.PoolMaxConns, 5*time.Second)
	if err != nil {
		log.Fatalf("pool init error: %v", err)
	}
	defer dbPool.Shutdown()

	repo := store.New(dbPool)

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(cfg.KAFKA_ADDRESS)
		defer producer.Close()
	}

	for i := range products {
		if err := repo.CreateProduct(ctx, &products[i]); err != nil {
			log.Fatalf("seed product %q: %v", products[i].Name, err)
		}
		log.Printf("seeded product %d: %s", products[i].ID, products[i].Name)

		err := producer.PublishEvent(ctx, events.TopicProductEvents, fmt.Sprint(products[i].ID), map[string]any{
			"type":       "product_seeded",
			"product_id": products[i].ID,
			"name":       products[i].Name,
		})
		if err != nil {
			log.Printf("publish product_seeded %q: %v", products[i].Name, err)
		}
	}

	if cfg.ES_URL != "" {
		es, err := search.NewClient(cfg)
		if err != nil {
			log.Printf("elasticsearch unavailable, skipping index: %v", err)
			return
		}
		for i := range products {
			if err := search.IndexProduct(ctx, es, &products[i]); err != nil {
				log.Printf("index product %q: %v", products[i].Name, err)
			}
		}
		log.Printf("indexed %d products", len(products))
	}
}
