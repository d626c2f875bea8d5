package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

var nacosConfigClient config_client.IConfigClient

// StartWatch 监听配置变化，在变更时回调 onChange(old, new)
// 优先监听 Nacos 配置中心，如果 Nacos 未配置则跳过监听（使用本地文件配置时）
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	nacosServerAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if nacosServerAddr != "" {
		return startNacosWatch(ctx, onChange)
	}

	fmt.Println("[Config] Nacos 未配置，跳过配置监听")
	return nil
}

// startNacosWatch 启动 Nacos 配置监听
func startNacosWatch(_ context.Context, onChange func(oldCfg, newCfg *Config)) error {
	serverConfigs, clientConfig, dataID, group, err := nacosEnv()
	if err != nil {
		return err
	}

	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}

	// 保存全局客户端引用
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)

			var newCfg Config
			ext := filepath.Ext(dataId)
			var parseErr error

			switch ext {
			case ".json":
				parseErr = json.Unmarshal([]byte(data), &newCfg)
			case ".yaml", ".yml":
				parseErr = yaml.Unmarshal([]byte(data), &newCfg)
			default:
				// 默认尝试 YAML，失败再尝试 JSON
				parseErr = yaml.Unmarshal([]byte(data), &newCfg)
				if parseErr != nil {
					parseErr = json.Unmarshal([]byte(data), &newCfg)
				}
			}

			if parseErr != nil {
				fmt.Printf("[Config] 解析 Nacos 配置失败: error=%v\n", parseErr)
				return
			}

			newCfg.FillDefaults()
			oldCfg := GetCurrent()
			SetCurrent(&newCfg)

			if onChange != nil {
				onChange(oldCfg, &newCfg)
			}

			fmt.Println("[Config] Nacos 配置已更新")
		},
	})

	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config] Nacos 配置监听已启动: dataId=%s, group=%s\n", dataID, group)
	return nil
}
