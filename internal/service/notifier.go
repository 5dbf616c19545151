package service

import "sync"

// Change 描述一次领域数据变更。ID 为可选的受影响实体主键，订阅方可以忽略。
type Change struct {
	Entity string
	ID     uint
}

// 变更实体类型常量，Publish 时作为 Change.Entity 使用
const (
	ChangeMovement = "movement"
	ChangeWorkout  = "workout"
	ChangeTemplate = "template"
)

// Notifier 是应用生命周期内的变更广播器。
// 订阅与退订显式成对出现，便于测试确定性地挂载/卸载观察者；
// Publish 在触发变更的调用栈内同步回调，保证通知 happens-after 其对应的写入
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]func(Change)
}

// NewNotifier 构造 Notifier。
func NewNotifier() *Notifier {
	return &Notifier{observers: make(map[int]func(Change))}
}

// Subscribe 注册一个观察者并返回用于退订的句柄。
func (n *Notifier) Subscribe(fn func(Change)) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.observers[n.nextID] = fn
	return n.nextID
}

// Unsubscribe 移除指定句柄的观察者，句柄无效时为空操作。
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// Publish 将变更同步分发给当前所有观察者。观察者之间的调用顺序不做保证。
func (n *Notifier) Publish(change Change) {
	if n == nil {
		return
	}

	n.mu.Lock()
	callbacks := make([]func(Change), 0, len(n.observers))
	for _, fn := range n.observers {
		callbacks = append(callbacks, fn)
	}
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn(change)
	}
}
