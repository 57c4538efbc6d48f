package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

const lockRetryDelay = 100 * time.Millisecond

// SignerLock serializes submissions for one (chain, signer) pair across
// processes sharing dir.
type SignerLock struct {
	lock *flock.Flock
}

// LockSigner acquires the signer lock, waiting at most wait.
func LockSigner(ctx context.Context, dir string, chainID *big.Int, signer common.Address, wait time.Duration) (*SignerLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "create signer lock directory", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.lock", chainID.String(), strings.ToLower(signer.Hex())))
	fl := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	locked, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return nil, clierr.Wrap(clierr.CodeStepAborted, "interrupted waiting for signer lock", err)
		}
		return nil, clierr.Wrap(clierr.CodeInternal, "lock signer", err)
	}
	if !locked {
		return nil, clierr.New(clierr.CodeSignerBusy, fmt.Sprintf("signer %s on chain %s is in use by another process (lock %s)", signer.Hex(), chainID, path))
	}
	return &SignerLock{lock: fl}, nil
}

func (l *SignerLock) Unlock() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
