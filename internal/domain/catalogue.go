package domain

// DefaultCatalogue is the starter reading list seeded into an empty store.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		"1": {"你为什么不开花", "小兔的帽子", "森林音乐会", "彩虹桥的故事", "小松鼠的秋天", "蚂蚁和西瓜", "小猫找新家", "大象的长鼻子"},
		"2": {"星星的旅行", "小猫钓鱼", "神奇的铅笔", "大树的秘密", "小兔子的胡萝卜", "会说话的花", "小猪的梦想", "风铃的声音"},
		"3": {"海底探险记", "山顶的风铃", "魔法书店", "影子朋友", "神秘的公园", "图书馆的夜晚", "小王子", "夏洛的网"},
		"4": {"时间的礼物", "云朵邮递员", "奇妙图书馆", "月亮的微笑", "神秘的灯塔", "雾中的森林", "小公主", "秘密花园"},
		"5": {"城市与森林", "寻找宝藏", "梦想的种子", "古老的钟表", "失落的地图", "鲁滨逊漂流记", "格列佛游记", "西游记"},
		"6": {"未来的信", "发明家俱乐部", "失落的王国", "星际旅行笔记", "三体", "基地", "银河系漫游指南", "安德的游戏"},
	}
}
