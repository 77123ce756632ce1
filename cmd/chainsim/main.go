package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/blkchain/forkchain"
	"github.com/blkchain/forkchain/secp"
)

const (
	blockReward  = 50
	genesisValue = 1000
)

func main() {

	cfgPath := flag.String("config", "", "TOML config file")
	cutoff := flag.Int("cutoff", forkchain.DefaultCutoffAge, "Cutoff age (overrides config)")
	nBlocks := flag.IntP("blocks", "n", 200, "Blocks to generate")
	nKeys := flag.Int("keys", 8, "Number of participants")
	nTxs := flag.Int("txs", 4, "Payments per block")
	forkPct := flag.Int("fork-pct", 10, "Percentage of blocks built on an older block")
	seed := flag.Int64("seed", 1, "Random seed")
	streamSize := flag.Int("stream-size", 64, "Blocks that may wait for their parent")
	logLevel := flag.String("loglevel", "info", "Chain log level (trace, debug, info, warn, error, off)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address")

	flag.Parse()

	cfg := forkchain.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = forkchain.LoadConfig(*cfgPath); err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	if flag.CommandLine.Changed("cutoff") || *cfgPath == "" {
		cfg.CutoffAge = *cutoff
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10_000
	}
	if *nKeys < 1 {
		log.Fatalf("--keys must be at least 1")
	}

	level, ok := btclog.LevelFromString(*logLevel)
	if !ok {
		log.Fatalf("Unknown log level: %q", *logLevel)
	}
	chainLog := btclog.NewBackend(logWriter{}).Logger("CHAN")
	chainLog.SetLevel(level)
	forkchain.UseLogger(chainLog)

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		cfg.Registerer = reg
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Printf("Serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Printf("Metrics server: %v", err)
			}
		}()
	}

	// monitor ctrl-c
	interrupt := make(chan bool, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Printf("Interrupt, stopping...")
		signal.Stop(sigCh)
		interrupt <- true
	}()

	sim := newSimulation(*nKeys, rand.New(rand.NewSource(*seed)))
	bc := forkchain.New(sim.genesis(), cfg)

	out := make(chan *forkchain.Block, 8)
	in := forkchain.NewBlockStream(bc, out, *streamSize)

	var wg sync.WaitGroup
	var committed int
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range out {
			committed++
		}
	}()

	start := time.Now()
	lastStatus := start
	for i := 0; i < *nBlocks && len(interrupt) == 0; i++ {
		b := sim.nextBlock(bc, *nTxs, *forkPct)
		in <- b

		if time.Since(lastStatus) > 5*time.Second {
			log.Printf("Generated %d blocks, height %d, %d in tree, %d pending (%.2f blk/s)",
				i+1, bc.MaxHeight(), bc.NumBlocks(), bc.PendingCount(),
				float64(i+1)/time.Since(start).Seconds())
			lastStatus = time.Now()
		}
	}

	log.Printf("Closing channel, waiting for the stream to finish...")
	close(in)
	wg.Wait()

	sim.report(bc, committed)
	log.Printf("All done in %s.", time.Since(start).Round(time.Millisecond))
}

// btcsuite uses a different logger, logWriter adapts that logger to
// use the standard "log" again.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	log.Print(string(p[24:])) // strip out timestamp
	return len(p), nil
}

type generated struct {
	block  *forkchain.Block
	height int
}

type simulation struct {
	rnd    *rand.Rand
	keys   []*secp.Key
	byKey  map[string]*secp.Key
	miner  *secp.Key
	recent []generated // last blocks produced, for forks
}

func newSimulation(nKeys int, rnd *rand.Rand) *simulation {
	s := &simulation{
		rnd:   rnd,
		byKey: make(map[string]*secp.Key),
	}
	for i := 0; i < nKeys; i++ {
		k := secp.KeyFromSeed([]byte(fmt.Sprintf("participant-%d", i)))
		s.keys = append(s.keys, k)
		s.byKey[string(k.PubKey())] = k
	}
	s.miner = s.keys[0]
	return s
}

// genesis pays every participant the same amount.
func (s *simulation) genesis() *forkchain.Block {
	cb := &forkchain.Tx{Version: forkchain.TxVersion}
	for _, k := range s.keys {
		cb.AddTxOut(genesisValue, k.PubKey())
	}
	b := forkchain.NewBlock(chainhash.Hash{}, cb, nil)
	s.recent = append(s.recent, generated{block: b})
	return b
}

// nextBlock makes up some payments spendable on the chosen parent,
// hands them to the pool and builds a block out of the pool.
func (s *simulation) nextBlock(bc *forkchain.BlockChain, nTxs, forkPct int) *forkchain.Block {

	parent := s.recent[len(s.recent)-1]
	if best := bc.MaxHeightBlock(); best != parent.block {
		if h, ok := bc.BlockHeight(best.Hash()); ok && h >= parent.height {
			parent = generated{block: best, height: h}
		}
	}
	if len(s.recent) > 1 && s.rnd.Intn(100) < forkPct {
		parent = s.recent[s.rnd.Intn(len(s.recent))]
	}

	utxos, ok := bc.UTXOSetAt(parent.block.Hash())
	if !ok {
		utxos = forkchain.NewUTXOSet()
	}

	var owned []forkchain.OutPoint
	if err := utxos.ForEach(func(op forkchain.OutPoint, out *forkchain.TxOut) bool {
		if _, ok := s.byKey[string(out.PubKey)]; ok && out.Value > 1 {
			owned = append(owned, op)
		}
		return true
	}); err != nil {
		log.Printf("Error scanning UTXO set: %v", err)
	}
	s.rnd.Shuffle(len(owned), func(i, j int) { owned[i], owned[j] = owned[j], owned[i] })

	for i := 0; i < nTxs && i < len(owned); i++ {
		if tx := s.payment(utxos, owned[i]); tx != nil {
			bc.AddTransaction(tx)
		}
	}

	// the handler takes what fits this branch, in pool order
	accepted := forkchain.NewTxHandler(utxos, secp.Verifier{}).HandleTxs(bc.PendingTransactions())

	height := parent.height + 1
	b := forkchain.NewBlock(parent.block.Hash(),
		forkchain.NewCoinbaseTx(s.miner.PubKey(), blockReward, height), accepted)
	b.Nonce = s.rnd.Uint32()
	b.Time = uint32(time.Now().Unix())

	s.recent = append(s.recent, generated{block: b, height: height})
	if len(s.recent) > 16 {
		s.recent = s.recent[1:]
	}
	return b
}

// payment sends part of op to a random participant, the rest goes
// back to the owner.
func (s *simulation) payment(utxos *forkchain.UTXOSet, op forkchain.OutPoint) *forkchain.Tx {
	out, ok := utxos.Get(op)
	if !ok {
		return nil
	}
	owner := s.byKey[string(out.PubKey)]
	to := s.keys[s.rnd.Intn(len(s.keys))]
	amount := 1 + s.rnd.Int63n(out.Value-1)

	tx := &forkchain.Tx{Version: forkchain.TxVersion}
	tx.AddTxIn(op)
	tx.AddTxOut(amount, to.PubKey())
	if change := out.Value - amount; change > 0 {
		tx.AddTxOut(change, owner.PubKey())
	}
	if err := tx.SignInput(0, owner); err != nil {
		log.Printf("Error signing: %v", err)
		return nil
	}
	return tx
}

func (s *simulation) report(bc *forkchain.BlockChain, committed int) {
	hits, miss, dups, evic := bc.PoolStats()
	best := bc.MaxHeightBlock()
	log.Printf("Best block %v at height %d, %d committed, %d in tree",
		best.Hash(), bc.MaxHeight(), committed, bc.NumBlocks())
	log.Printf("Pool: %d pending, %d confirmed, %d missed, %d dups, %d evicted",
		bc.PendingCount(), hits, miss, dups, evic)

	utxos := bc.MaxHeightUTXOSet()
	var total btcutil.Amount
	for _, k := range s.keys {
		balance, err := utxos.Balance(k.PubKey())
		if err != nil {
			log.Printf("Error computing balance: %v", err)
			return
		}
		total += btcutil.Amount(balance)
		log.Printf("  %s %s", hex.EncodeToString(btcutil.Hash160(k.PubKey())),
			btcutil.Amount(balance).Format(btcutil.AmountSatoshi))
	}
	log.Printf("  total %s in %d outputs", total.Format(btcutil.AmountSatoshi), utxos.Len())
}
