//go:build !unix

package unix

import (
	"context"

	"github.com/dep2p/go-msgbus/config"
	"github.com/dep2p/go-msgbus/pkg/address"
	transportif "github.com/dep2p/go-msgbus/pkg/interfaces/transport"
)

// Backend 平台默认监听后端；此平台上没有本地套接字传输
type Backend struct{}

// 确保实现接口
var _ transportif.Backend = (*Backend)(nil)

// New 创建平台默认后端
func New(config.UnixConfig) *Backend {
	return &Backend{}
}

// Name 实现 transport.Backend
func (b *Backend) Name() string {
	return Name
}

// Listen 实现 transport.Backend，总是返回 NotHandled
func (b *Backend) Listen(context.Context, *address.Entry) (transportif.ListenResult, transportif.Listener, error) {
	return transportif.ListenNotHandled, nil, nil
}
