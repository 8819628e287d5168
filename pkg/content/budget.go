package content

import "ai-chatwidget-be/internal/config"

// BudgetTracker enforces the inline-image budgets while a request is being
// assembled: total image bytes per request, image blocks per message. The
// byte budget spans the whole request; the image count resets per message.
type BudgetTracker struct {
	remainingBytes  int64
	remainingImages int
	imagesPerMsg    int
}

func NewBudgetTracker(policy config.Policy) *BudgetTracker {
	return &BudgetTracker{
		remainingBytes:  policy.MaxInlineImageBytes,
		remainingImages: policy.MaxImagesPerMessage,
		imagesPerMsg:    policy.MaxImagesPerMessage,
	}
}

// NextMessage resets the per-message image count; the request-level byte
// budget keeps draining.
func (b *BudgetTracker) NextMessage() {
	b.remainingImages = b.imagesPerMsg
}

// TryConsumeImage reserves budget for one image of the given size. It returns
// false without consuming anything when either budget is exhausted.
func (b *BudgetTracker) TryConsumeImage(size int64) bool {
	if b.remainingImages <= 0 || size > b.remainingBytes {
		return false
	}
	b.remainingImages--
	b.remainingBytes -= size
	return true
}

func (b *BudgetTracker) RemainingBytes() int64 {
	return b.remainingBytes
}

func (b *BudgetTracker) RemainingImages() int {
	return b.remainingImages
}
