package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"

	"guardian-chat/domain"
	"guardian-chat/repositories"
)

// Conversation d'exemple avec des niveaux de risque variés, pour remplir
// l'archive et l'index de recherche sans lancer le serveur.
var seedMessages = []struct {
	Author string
	Text   string
	Level  domain.RiskLevel
	Score  int
}{
	{"alice", "hey everyone, anyone up for the quiz tonight", domain.RiskLow, 0},
	{"bob", "sure, same team as last time", domain.RiskLow, 0},
	{"mallory", "how old are you alice", domain.RiskMedium, 45},
	{"alice", "we only talk about the quiz here", domain.RiskLow, 0},
	{"mallory", "add me on discord we can talk there", domain.RiskHigh, 75},
	{"mallory", "keep it secret and send a pic", domain.RiskHigh, 90},
	{"bob", "reported, this is getting weird", domain.RiskLow, 0},
}

func main() {
	// Dossiers de destination, les mêmes que le serveur par défaut
	badgerPath := "./data/badger"
	blugePath := "./data/bluge"
	room := "chat_room"

	fmt.Println("🚀 Guardian-Chat : Génération des messages de test...")

	db, err := badger.Open(badger.DefaultOptions(badgerPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		panic(fmt.Sprintf("Impossible d'ouvrir BadgerDB : %v", err))
	}
	defer db.Close()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(blugePath))
	if err != nil {
		panic(fmt.Sprintf("Impossible d'ouvrir l'index Bluge : %v", err))
	}
	defer writer.Close()

	log := logs.GetLoggerFromLevel(slog.LevelError)
	index := repositories.NewSearchIndex(writer, log, 50)
	archive := repositories.NewMessageArchive(db, index, log, lo.ToPtr(50))

	base := time.Now().UTC().Add(-time.Duration(len(seedMessages)) * time.Minute)
	for i, seed := range seedMessages {
		at := base.Add(time.Duration(i) * time.Minute)
		record := repositories.ArchivedMessage{
			ID:        domain.NewMessageID(at),
			Room:      room,
			Author:    seed.Author,
			Text:      seed.Text,
			At:        at,
			RiskLevel: string(seed.Level),
			RiskScore: seed.Score,
		}
		if err := archive.Store(record); err != nil {
			fmt.Printf("❌ Erreur d'écriture : %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("💬 [%s:%d] %s : %s\n", seed.Level, seed.Score, seed.Author, seed.Text)
	}

	if err := index.Flush(); err != nil {
		fmt.Printf("❌ Erreur de flush de l'index : %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Prêt ! %d messages dans %s, index dans %s\n", len(seedMessages), badgerPath, blugePath)
}
