package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineErrors_AreDistinctAndUsableWithErrorsIs(t *testing.T) {
	all := []error{ErrNoUsableFont, ErrProvision, ErrLaunch, ErrRender}
	for i, a := range all {
		if a == nil || a.Error() == "" {
			t.Fatalf("error %d must be non-nil with a message", i)
		}
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Fatalf("%v must not match %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("%w: exit status 1", ErrProvision)
	if !errors.Is(wrapped, ErrProvision) {
		t.Fatalf("expected errors.Is to match ErrProvision")
	}
}

func TestErrBinaryNotFoundAfterInstall_IsProvisionError(t *testing.T) {
	if !errors.Is(ErrBinaryNotFoundAfterInstall, ErrProvision) {
		t.Fatalf("ErrBinaryNotFoundAfterInstall must be a provisioning error")
	}
	joined := errors.Join(errors.New("context"), ErrBinaryNotFoundAfterInstall)
	if !errors.Is(joined, ErrBinaryNotFoundAfterInstall) {
		t.Fatalf("expected errors.Is to match through errors.Join")
	}
}
