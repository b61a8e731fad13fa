// Package mocks 提供统一的测试 Mock 实现
//
//   - MockSource / MockRegistration: gomock 生成的 interfaces.Source / interfaces.Registration
//   - MockHost: 手写的 interfaces.Host，支持通过 XxxFunc 字段注入行为
//
// # 使用示例
//
//	ctrl := gomock.NewController(t)
//	src := mocks.NewMockSource(ctrl)
//	src.EXPECT().IsAsync(gomock.Any()).Return(false).AnyTimes()
//	src.EXPECT().Register(gomock.Any(), types.PriorityNormal, false, gomock.Any()).
//	    Return(mocks.NopRegistration(), nil).Times(1)
//
//	host := mocks.NewMockHost("test", src)
//	reg := eventbus.NewRegistry().Bind(host)
package mocks
