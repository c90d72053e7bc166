package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// MQTTBridge 将表变更事件转发到 MQTT 主题 <prefix>/<table>
type MQTTBridge struct {
	Config *config.Config
	Hub    *Hub
	Client mqtt.Client

	// publish 发布函数，测试中可替换
	publish func(topic string, payload []byte) error

	connectedMutex sync.RWMutex
	isConnected    bool
	unsubscribe    func()
}

// NewMQTTBridge 创建 MQTT 转发器
func NewMQTTBridge(cfg *config.Config, hub *Hub) *MQTTBridge {
	b := &MQTTBridge{Config: cfg, Hub: hub}
	b.setupMQTTClient()
	b.publish = b.publishToBroker
	return b
}

// setupMQTTClient 设置MQTT客户端
func (b *MQTTBridge) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", b.Config.MQTTClientID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	if b.Config.MQTTUsername != "" {
		opts.SetUsername(b.Config.MQTTUsername)
		opts.SetPassword(b.Config.MQTTPassword)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warning("[MQTT] 连接丢失: %v", err)
		b.setConnected(false)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("[MQTT] 成功连接到 %s", b.Config.MQTTBrokerURL)
		b.setConnected(true)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		logger.Info("[MQTT] 正在尝试重连...")
	})

	b.Client = mqtt.NewClient(opts)
}

func (b *MQTTBridge) setConnected(v bool) {
	b.connectedMutex.Lock()
	b.isConnected = v
	b.connectedMutex.Unlock()
}

// IsConnected 当前是否已连接
func (b *MQTTBridge) IsConnected() bool {
	b.connectedMutex.RLock()
	defer b.connectedMutex.RUnlock()
	return b.isConnected && b.Client != nil && b.Client.IsConnected()
}

// Connect 连接到MQTT服务器，指数退避重试
func (b *MQTTBridge) Connect(maxRetries int) error {
	if b.IsConnected() {
		return nil
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		token := b.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			b.setConnected(true)
			return nil
		}

		err = token.Error()
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 1s, 2s, 4s, 8s, 16s
		logger.Warning("[MQTT] 连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[MQTT] 连接失败，已尝试 %d 次: %v", maxRetries, err)
}

// Start 订阅全部表的变更并开始转发
func (b *MQTTBridge) Start() {
	_, b.unsubscribe = b.Hub.Subscribe(AllTables, b.forward)
	logger.Info("[MQTT] 数据变更转发已启动，主题前缀: %s", b.Config.MQTTTopicPrefix)
}

// Stop 停止转发并断开连接
func (b *MQTTBridge) Stop() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.Client != nil && b.Client.IsConnected() {
		b.Client.Disconnect(250)
	}
}

// Topic 事件对应的MQTT主题
func (b *MQTTBridge) Topic(table string) string {
	return strings.TrimRight(b.Config.MQTTTopicPrefix, "/") + "/" + table
}

func (b *MQTTBridge) forward(event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("[MQTT] 序列化变更事件失败: %v", err)
		return
	}
	if err := b.publish(b.Topic(event.Table), payload); err != nil {
		logger.Error("[MQTT] 转发 %s 变更失败: %v", event.Table, err)
	}
}

// publishToBroker 发布消息到MQTT服务器
func (b *MQTTBridge) publishToBroker(topic string, payload []byte) error {
	if !b.IsConnected() {
		return fmt.Errorf("MQTT客户端未连接")
	}

	token := b.Client.Publish(topic, byte(b.Config.MQTTQoS), false, payload)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时")
	}
	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %v", token.Error())
	}
	return nil
}
