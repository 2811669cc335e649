// Package address 解析和生成总线地址字符串
//
// 地址由分号分隔的多个条目组成，每个条目是一个传输方法加上逗号分隔的
// key=value 参数：
//
//	unix:path=/tmp/bus;tcp:host=localhost,port=0
//
// 参数值使用百分号转义；[-0-9A-Za-z_/.\*] 之外的字节必须转义。
//
// 使用示例：
//
//	entries, err := address.Parse("unix:tmpdir=/tmp;tcp:port=0")
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    fmt.Println(e.Method(), e.Get("port"))
//	}
package address
