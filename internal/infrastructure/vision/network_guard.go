package vision

import (
	"errors"
	"fmt"
	"sync"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// SerialNetwork пропускает через сеть один проход за раз.
// Нужен для бэкендов, у которых SetInput/Forward меняют состояние сети (OpenCV DNN).
type SerialNetwork struct {
	mu  sync.Mutex
	net port.Network
}

// NewSerialNetwork оборачивает сеть мьютексом.
func NewSerialNetwork(net port.Network) *SerialNetwork {
	return &SerialNetwork{net: net}
}

// Forward выполняет проход под блокировкой.
func (s *SerialNetwork) Forward(tensor *entity.InputTensor) ([]entity.RawDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Forward(tensor)
}

// Close закрывает сеть, дождавшись текущего прохода.
func (s *SerialNetwork) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

// NetworkPool держит по экземпляру сети на каждый одновременный запрос.
// Каждый экземпляр используется строго одним вызовом Forward.
type NetworkPool struct {
	slots chan port.Network
	all   []port.Network
	done  chan struct{}
	once  sync.Once
}

// NewNetworkPool открывает size экземпляров через open.
// При ошибке уже открытые экземпляры закрываются.
func NewNetworkPool(size int, open func() (port.Network, error)) (*NetworkPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("network pool size must be positive, got %d", size)
	}

	pool := &NetworkPool{
		slots: make(chan port.Network, size),
		all:   make([]port.Network, 0, size),
		done:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		net, err := open()
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("open network %d: %w", i, err)
		}
		pool.all = append(pool.all, net)
		pool.slots <- net
	}

	return pool, nil
}

// Size возвращает число экземпляров.
func (p *NetworkPool) Size() int {
	return len(p.all)
}

// Forward берёт свободный экземпляр, при необходимости ожидая его.
func (p *NetworkPool) Forward(tensor *entity.InputTensor) ([]entity.RawDetection, error) {
	select {
	case <-p.done:
		return nil, errPoolClosed
	case net := <-p.slots:
		// Close мог начаться, пока ждали слот
		select {
		case <-p.done:
			p.slots <- net
			return nil, errPoolClosed
		default:
		}

		defer func() { p.slots <- net }()
		return net.Forward(tensor)
	}
}

// Close запрещает новые проходы, дожидается текущих и закрывает все экземпляры.
func (p *NetworkPool) Close() error {
	var errs []error
	p.once.Do(func() {
		close(p.done)
		for range p.all {
			<-p.slots
		}
		for _, net := range p.all {
			if err := net.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

var errPoolClosed = fmt.Errorf("%w: network pool is closed", entity.ErrInference)

// Проверка реализации интерфейса
var (
	_ port.Network = (*SerialNetwork)(nil)
	_ port.Network = (*NetworkPool)(nil)
)
