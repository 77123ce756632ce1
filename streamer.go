package forkchain

// Blocks do not necessarily arrive in order: a child can show up
// before its parent. CommitBlock refuses such a block, the stream
// instead sets it aside and retries it every time some other block got
// committed, since that may well have been the missing parent. The set
// aside area is bounded, when it is full the block that has been
// waiting longest is dropped.
//
// Every block that got committed, directly or after waiting, is sent
// to out. Closing the returned channel makes the worker give up on the
// blocks still waiting and close out.

func NewBlockStream(bc *BlockChain, out chan<- *Block, size int) chan<- *Block {
	in := make(chan *Block)
	go blockStreamWorker(bc, in, out, size)
	return in
}

func blockStreamWorker(bc *BlockChain, in <-chan *Block, out chan<- *Block, size int) {

	waiting := blockQueue{}
	waitingMax := 0

	for b := range in {
		err := bc.commit(b)
		if err == ErrUnknownParent {
			if size > 0 && waiting.size() >= size {
				dropped := waiting.pop()
				log.Warnf("Too many blocks waiting for a parent, dropping %v", dropped.Hash())
			}
			waiting.push(b)
			log.Debugf("Setting aside block %v (waiting: %d)", b.Hash(), waiting.size())
			if waiting.size() > waitingMax {
				waitingMax = waiting.size()
			}
			continue
		}
		if err != nil {
			continue
		}
		out <- b

		// A commit may connect any number of waiting blocks, keep going
		// until a pass gets nothing done.
		for progress := true; progress; {
			progress = false
			for i := 0; i < waiting.size(); {
				wb := waiting[i]
				err := bc.retry(wb)
				if err == ErrUnknownParent {
					i++
					continue
				}
				waiting.remove(i)
				if err == nil {
					log.Debugf("Connected waiting block %v (waiting: %d)", wb.Hash(), waiting.size())
					out <- wb
					progress = true
				}
			}
		}
	}

	if waiting.size() > 0 {
		log.Infof("Block stream closed with %d blocks still missing a parent, e.g. %v",
			waiting.size(), waiting[0].PrevHash)
	}
	log.Debugf("Block stream done, at most %d blocks were waiting", waitingMax)

	close(out)
}

type blockQueue []*Block

// fifo push (yes, these must be pointer methods)
func (q *blockQueue) push(b *Block) {
	*q = append(*q, b)
}

func (q *blockQueue) pop() (b *Block) {
	if len(*q) == 0 {
		return nil
	}
	b, *q = (*q)[0], (*q)[1:]
	return b
}

func (q *blockQueue) remove(i int) {
	*q = append((*q)[:i], (*q)[i+1:]...)
}

func (q *blockQueue) size() int {
	return len(*q)
}
