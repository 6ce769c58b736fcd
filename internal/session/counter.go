package session

// LikeCounter 乐观点赞数：以目录上报的点赞数为基数，叠加本地净切换次数，显示时下限为0。
// 只用于显示，从不写入存储。
type LikeCounter struct {
	base  int
	delta int
}

func NewLikeCounter(base int) *LikeCounter {
	return &LikeCounter{base: base}
}

// Apply 记录一次本地切换
func (c *LikeCounter) Apply(liked bool) {
	if liked {
		c.delta++
	} else {
		c.delta--
	}
}

// Display 当前显示的点赞数
func (c *LikeCounter) Display() int {
	if n := c.base + c.delta; n > 0 {
		return n
	}
	return 0
}

// Reset 重新从目录拉取后，以新的上报值为准并清空本地增量
func (c *LikeCounter) Reset(base int) {
	c.base = base
	c.delta = 0
}
